package errors

// Code is a stable error code. Codes are only ever added, never repurposed.
type Code string

const (
	// Config / args
	CodeCfgInvalid Code = "SM_CFG_INVALID"

	// Destination collection does not exist and must be created by the operator
	CodeDestinationMissing Code = "SM_DESTINATION_MISSING"

	// Secret store call (unlock, read, create) failed
	CodeStoreFailed Code = "SM_STORE_FAILED"

	// Input file or record is missing data required by the conversion
	CodeInputMalformed Code = "SM_INPUT_MALFORMED"

	// Reading or writing the exchange file failed
	CodeIOFailed Code = "SM_IO_FAILED"

	// Internal
	CodeInternal Code = "SM_INTERNAL"
)

// AllCodes returns every known code.
func AllCodes() []Code {
	return []Code{
		CodeCfgInvalid,
		CodeDestinationMissing,
		CodeStoreFailed,
		CodeInputMalformed,
		CodeIOFailed,
		CodeInternal,
	}
}
