// Package otpcheck implements the [authcore.CodeProvider] collaborator:
// TOTP provisioning and window-tolerant comparison, and Redis-stored SMS
// one-time codes with pluggable delivery.
//
// The engine owns every accept/reject decision and all attempt bookkeeping;
// this package only answers "is this code currently valid for this user".
// Backup codes never reach it.
package otpcheck
