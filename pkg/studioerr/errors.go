// ABOUTME: Error taxonomy for the audio studio
// ABOUTME: Provider, decode, edit and prerequisite failures built on errorx
package studioerr

import "github.com/joomcode/errorx"

var (
	// Namespace groups every studio error type
	Namespace = errorx.NewNamespace("studio")

	// ProviderFailure covers network and quota errors from the TTS provider.
	// Errors of this type are retried.
	ProviderFailure = Namespace.NewType("provider_failure", errorx.Temporary())

	// ProviderRejected is a provider error that retrying cannot fix
	ProviderRejected = Namespace.NewType("provider_rejected")

	// DecodeFailure means a chunk or blob could not be turned into samples
	DecodeFailure = Namespace.NewType("decode_failure")

	// InvalidEdit reports bad trim, merge or seek parameters
	InvalidEdit = Namespace.NewType("invalid_edit")

	// MissingPrerequisite reports a missing credential, buffer or session
	MissingPrerequisite = Namespace.NewType("missing_prerequisite")
)

// IsRetryable reports whether err should be retried
func IsRetryable(err error) bool {
	return errorx.HasTrait(err, errorx.Temporary())
}

// IsInvalidEdit reports whether err is an InvalidEdit
func IsInvalidEdit(err error) bool {
	return errorx.IsOfType(err, InvalidEdit)
}

// IsMissingPrerequisite reports whether err is a MissingPrerequisite
func IsMissingPrerequisite(err error) bool {
	return errorx.IsOfType(err, MissingPrerequisite)
}

// IsDecodeFailure reports whether err is a DecodeFailure
func IsDecodeFailure(err error) bool {
	return errorx.IsOfType(err, DecodeFailure)
}
