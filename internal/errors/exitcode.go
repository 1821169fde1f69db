package errors

// ExitCode is the process exit status for a failed run.
type ExitCode int

const (
	ExitOK ExitCode = 0
	// 1: bad command line (unknown command, wrong argument count)
	ExitUsage ExitCode = 1
	// 2: configuration error
	ExitConfig ExitCode = 2
	// 3: destination collection missing
	ExitDestination ExitCode = 3
	// 4: secret store call failed
	ExitStore ExitCode = 4
	// 5: malformed input file or record
	ExitInput ExitCode = 5
	// 6: exchange file could not be read or written
	ExitIO ExitCode = 6
	// 10: internal error
	ExitInternal ExitCode = 10
)

func ExitCodeFor(code Code) ExitCode {
	switch code {
	case CodeCfgInvalid:
		return ExitConfig
	case CodeDestinationMissing:
		return ExitDestination
	case CodeStoreFailed:
		return ExitStore
	case CodeInputMalformed:
		return ExitInput
	case CodeIOFailed:
		return ExitIO
	case CodeInternal:
		fallthrough
	default:
		return ExitInternal
	}
}
