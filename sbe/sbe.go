// Package sbe holds the SBE41/SBE43 wire protocol: command strings, the
// command prompt, the labels found in status dumps and the lexer that
// validates sample replies.
package sbe

const (
	// Terminal Control
	CR     = "\r"
	CRLF   = "\r\n"
	Prompt = "S>"

	// Pause is the in-command marker that makes the sender wait one pause
	// period instead of transmitting a byte.
	Pause = '~'

	// Commands
	CmdWake                = "\r"
	CmdDisplayStatus       = "ds\r"
	CmdDisplayCoefficients = "dc\r"
	CmdPowerDown           = "qs\r"
	CmdReplyFormatS        = "dsreplyformat=s\r"
	CmdOutputDensityOff    = "outputdensity=n\r"
	CmdTimingDelaysOff     = "addtimingdelays=n\r"
	CmdOxygenNf            = "oxnf=2.0\r"
	CmdOxygenNs            = "oxns=0.0\r"

	// Banner expected in reply to ds before the firmware line.
	FirmwareBanner = "SBE 41"
)

// Status dump labels (reply to ds).
const (
	LabelSerialNumber    = "SERIAL NO."
	LabelPTUnpumped      = "do not pump before faspt measurement"
	LabelPTPumped        = "pump 0.25 sec before faspt measurement"
	LabelTimingDelaysOff = "add timing delays = no"
	LabelTimingDelaysOn  = "add timing delays = yes"
	LabelDensityOff      = "output density = no"
	LabelDensityOn       = "output density = yes"

	// StatusSentinel marks the last line of interest in a ds dump.
	StatusSentinel = "output density"
)

// Coefficient dump labels (reply to dc) of the SBE43 oxygen sensor.
const (
	LabelOxygenNs     = "Ns ="
	LabelOxygenNf     = "Nf ="
	LabelOxygenTau20  = "TAU_20 ="
	LabelOxygenSerial = "oxygen S/N ="

	// OxygenSentinel marks the last line of interest in a dc dump.
	OxygenSentinel = "Nf"
)

// CmdPumpFastPT returns the command that enables or disables the 0.25s
// pump period ahead of low-power PT samples.
func CmdPumpFastPT(pumped bool) string {
	if pumped {
		return "pumpfastpt=y\r"
	}
	return "pumpfastpt=n\r"
}

type ResponseType int

const (
	TypeData   ResponseType = iota // status lines, sample replies
	TypePrompt                     // S>
	TypeEcho                       // instrument echo of a command word
)
