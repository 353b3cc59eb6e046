package ldap3

import (
	"errors"
	"fmt"

	"github.com/nmorey/ldap3/ber"
)

// Result codes defined by RFC 4511 Appendix A.1, plus a small range this
// library reserves for its own local conditions (ErrorNetwork,
// ErrorFilterCompile, etc., kept >= 1000 so they can never collide with a
// future RFC allocation).
const (
	LDAPResultSuccess                   = 0
	LDAPResultOperationsError            = 1
	LDAPResultProtocolError              = 2
	LDAPResultTimeLimitExceeded          = 3
	LDAPResultSizeLimitExceeded          = 4
	LDAPResultCompareFalse               = 5
	LDAPResultCompareTrue                = 6
	LDAPResultAuthMethodNotSupported     = 7
	LDAPResultStrongerAuthRequired       = 8
	LDAPResultReferral                   = 10
	LDAPResultAdminLimitExceeded         = 11
	LDAPResultUnavailableCriticalExtension = 12
	LDAPResultConfidentialityRequired    = 13
	LDAPResultSaslBindInProgress         = 14
	LDAPResultNoSuchAttribute            = 16
	LDAPResultUndefinedAttributeType     = 17
	LDAPResultInappropriateMatching      = 18
	LDAPResultConstraintViolation        = 19
	LDAPResultAttributeOrValueExists     = 20
	LDAPResultInvalidAttributeSyntax     = 21
	LDAPResultNoSuchObject               = 32
	LDAPResultAliasProblem               = 33
	LDAPResultInvalidDNSyntax            = 34
	LDAPResultAliasDereferencingProblem  = 36
	LDAPResultInappropriateAuthentication = 48
	LDAPResultInvalidCredentials         = 49
	LDAPResultInsufficientAccessRights   = 50
	LDAPResultBusy                       = 51
	LDAPResultUnavailable                = 52
	LDAPResultUnwillingToPerform         = 53
	LDAPResultLoopDetect                 = 54
	LDAPResultNamingViolation            = 64
	LDAPResultObjectClassViolation       = 65
	LDAPResultNotAllowedOnNonLeaf        = 66
	LDAPResultNotAllowedOnRDN            = 67
	LDAPResultEntryAlreadyExists         = 68
	LDAPResultObjectClassModsProhibited  = 69
	LDAPResultAffectsMultipleDSAs        = 71
	LDAPResultOther                      = 80

	// LDAPResultCanceled is reserved by this library to report a
	// caller-initiated cancellation of an in-flight Search stream that
	// never reached SearchResultDone.
	LDAPResultCanceled = 88
)

// Local (non-wire) result codes, all outside the RFC 4511 0-90 range.
const (
	ErrorNetwork = iota + 1000
	ErrorFilterCompile
	ErrorFilterDecompile
	ErrorEmptyValueSet
	ErrorEndOfStream
	ErrorTimeout
	ErrorAdapterInit
	ErrorDebugging
	ErrorUnexpectedResponse
	ErrorUnexpectedMessage
)

// Error is the single error type surfaced by this package for both
// protocol-level outcomes (ResultCode from the wire, 0-90) and local
// conditions (ResultCode >= 1000). It implements Unwrap so callers can use
// errors.Is/errors.As against the wrapped cause.
type Error struct {
	ResultCode uint16
	MatchedDN  string
	Err        error
	Packet     *ber.Packet
}

// NewError wraps err with the given result code.
func NewError(resultCode uint16, err error) *Error {
	return &Error{ResultCode: resultCode, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("LDAP Result Code %d %q", e.ResultCode, resultCodeName(e.ResultCode))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsErrorWithCode reports whether err is, or wraps, an *Error with the
// given result code.
func IsErrorWithCode(err error, code uint16) bool {
	if err == nil {
		return false
	}
	var lerr *Error
	if !errors.As(err, &lerr) {
		return false
	}
	return lerr.ResultCode == code
}

// IsErrorAnyOf reports whether err is, or wraps, an *Error whose result
// code is any of codes.
func IsErrorAnyOf(err error, codes ...uint16) bool {
	for _, c := range codes {
		if IsErrorWithCode(err, c) {
			return true
		}
	}
	return false
}

var resultCodeNames = map[uint16]string{
	LDAPResultSuccess:                      "Success",
	LDAPResultOperationsError:              "Operations Error",
	LDAPResultProtocolError:                "Protocol Error",
	LDAPResultTimeLimitExceeded:            "Time Limit Exceeded",
	LDAPResultSizeLimitExceeded:            "Size Limit Exceeded",
	LDAPResultCompareFalse:                 "Compare False",
	LDAPResultCompareTrue:                  "Compare True",
	LDAPResultAuthMethodNotSupported:       "Auth Method Not Supported",
	LDAPResultStrongerAuthRequired:         "Stronger Auth Required",
	LDAPResultReferral:                     "Referral",
	LDAPResultAdminLimitExceeded:           "Admin Limit Exceeded",
	LDAPResultUnavailableCriticalExtension: "Unavailable Critical Extension",
	LDAPResultConfidentialityRequired:      "Confidentiality Required",
	LDAPResultSaslBindInProgress:           "SASL Bind In Progress",
	LDAPResultNoSuchAttribute:              "No Such Attribute",
	LDAPResultUndefinedAttributeType:       "Undefined Attribute Type",
	LDAPResultInvalidDNSyntax:              "Invalid DN Syntax",
	LDAPResultNoSuchObject:                 "No Such Object",
	LDAPResultInvalidCredentials:           "Invalid Credentials",
	LDAPResultInsufficientAccessRights:     "Insufficient Access Rights",
	LDAPResultBusy:                         "Busy",
	LDAPResultUnavailable:                  "Unavailable",
	LDAPResultUnwillingToPerform:           "Unwilling To Perform",
	LDAPResultEntryAlreadyExists:           "Entry Already Exists",
	LDAPResultCanceled:                     "Canceled",
	ErrorNetwork:                           "Network Error",
	ErrorFilterCompile:                     "Filter Compile Error",
	ErrorFilterDecompile:                   "Filter Decompile Error",
	ErrorEmptyValueSet:                     "Empty Value Set",
	ErrorEndOfStream:                       "Unexpected End Of Stream",
	ErrorTimeout:                           "Timeout",
	ErrorAdapterInit:                       "Adapter Initialization Error",
	ErrorDebugging:                         "Debugging Error",
	ErrorUnexpectedResponse:                "Unexpected Response",
	ErrorUnexpectedMessage:                 "Unexpected Message",
}

func resultCodeName(code uint16) string {
	if name, ok := resultCodeNames[code]; ok {
		return name
	}
	return "Unknown Result Code"
}

// success converts a *LdapResult with a non-zero result code into an
// error; a zero code returns nil.
func success(res *LdapResult) error {
	if res == nil || res.ResultCode == LDAPResultSuccess {
		return nil
	}
	return &Error{ResultCode: res.ResultCode, MatchedDN: res.MatchedDN, Err: errors.New(res.Diagnostic)}
}

// nonError converts a *LdapResult into an error unless the result code is
// success or referral, for callers who want to treat referrals as
// successful completions.
func nonError(res *LdapResult) error {
	if res == nil || res.ResultCode == LDAPResultSuccess || res.ResultCode == LDAPResultReferral {
		return nil
	}
	return &Error{ResultCode: res.ResultCode, MatchedDN: res.MatchedDN, Err: errors.New(res.Diagnostic)}
}
