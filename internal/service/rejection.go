package service

import "net/http"

// Rejection is a policy refusal carrying the HTTP status and the message
// shown to the caller. Handlers distinguish it from transport or storage
// failures with errors.As.
type Rejection struct {
	Status  int
	Message string
}

func (r *Rejection) Error() string { return r.Message }

func reject(status int, message string) *Rejection {
	return &Rejection{Status: status, Message: message}
}

// Messages surfaced on refused auth operations.
const (
	MsgUserNotFound        = "User not found."
	MsgIncorrectCredential = "Incorrect email or password."
	MsgAccountDeactivated  = "Account is deactivated."
	MsgEmailRegistered     = "Email already registered, log in instead"
	MsgUsernameExists      = "Username exists, please try another"
	MsgResetTokenInvalid   = "Password reset token is invalid or has expired."
	MsgRecoverUserNotFound = "User not found"
)

func rejectBadRequest(message string) *Rejection {
	return reject(http.StatusBadRequest, message)
}

func rejectUnauthorized(message string) *Rejection {
	return reject(http.StatusUnauthorized, message)
}
