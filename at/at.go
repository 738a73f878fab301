package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = "> "

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// URCs (Unsolicited Result Codes)
	UrcRegistration   = "+CEREG:"
	UrcSignalStrength = "+CESQ:"
	UrcCall           = "RING"

	// Information responses
	RespAddress = "+CGPADDR:"

	// SIM states
	SimReady = "+CPIN: READY"
	SimPin   = "+CPIN: SIM PIN"
)

// Commands issued by the daemon. They are sent without the trailing CR,
// which the modem loop appends.
const (
	CmdAt            = "AT"
	CmdEchoOff       = "ATE0"
	CmdVerboseErrors = "AT+CMEE=2"
	CmdSimStatus     = "AT+CPIN?"

	CmdRadioOn         = "AT+CFUN=1"
	CmdRadioOff        = "AT+CFUN=0"
	CmdFirmwareVersion = "AT+CGMR"
	CmdIMEI            = "AT+CGSN"

	// CEREG=2 reports registration changes together with location info.
	CmdEnableRegistrationURC = "AT+CEREG=2"
	CmdQueryRegistration     = "AT+CEREG?"

	// Default context (cid 0), IP, access point taken from the SIM.
	CmdDefineContext     = `AT+CGDCONT=0,"IP"`
	CmdActivateContext   = "AT+CGACT=1,0"
	CmdDeactivateContext = "AT+CGACT=0,0"
	CmdQueryAddress      = "AT+CGPADDR=0"
)

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CGPADDR: ...)
	TypePrompt                     // Text input prompt
)
