package model

// ErrorClass labels why a probe or an attempt failed.
type ErrorClass string

const (
	ClassNone            ErrorClass = ""
	ClassParse           ErrorClass = "ParseError"
	ClassAuth            ErrorClass = "AuthError"
	ClassTimeout         ErrorClass = "TimeoutError"
	ClassConnect         ErrorClass = "ConnectError"
	ClassMediaUpload     ErrorClass = "MediaUploadError"
	ClassInvalidResponse ErrorClass = "InvalidResponseError"
	ClassUpstream        ErrorClass = "UpstreamError"
	ClassUnknown         ErrorClass = "Unknown"
)

// String returns "None" for the zero class so it reads well in logs and
// metric labels.
func (c ErrorClass) String() string {
	if c == ClassNone {
		return "None"
	}
	return string(c)
}

// MarshalText encodes the class as its String form, so ClassNone is "None".
func (c ErrorClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts "None" or "" as ClassNone.
func (c *ErrorClass) UnmarshalText(b []byte) error {
	if s := string(b); s != "None" {
		*c = ErrorClass(s)
	} else {
		*c = ClassNone
	}
	return nil
}
