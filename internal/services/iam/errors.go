package iam

import "errors"

// Provisioning failures. All occur before a session exists and surface
// through the federated-login failure path.
var (
	// ErrMissingEmail means the provider callback carried no usable email.
	ErrMissingEmail = errors.New("no email from identity provider")

	// ErrInvalidEmailFormat means the callback email cannot be parsed.
	ErrInvalidEmailFormat = errors.New("invalid email format from identity provider")

	// ErrProviderConflict means the email belongs to an account registered
	// through a different provider.
	ErrProviderConflict = errors.New("account exists with a different provider")
)

// Authorization denials. Both surface to the caller as forbidden.
var (
	// ErrInsufficientRole means no role held by the principal permits the action.
	ErrInsufficientRole = errors.New("role does not permit this action")

	// ErrNotOwner means the action is only permitted on resources the
	// principal owns, and this resource is owned by someone else or absent.
	ErrNotOwner = errors.New("resource is not owned by this principal")
)
