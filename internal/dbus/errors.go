package dbus

import (
	"errors"

	"github.com/godbus/dbus/v5"
)

// D-Bus error names for the Secret Service API
const (
	ErrIsLocked         = "org.freedesktop.Secret.Error.IsLocked"
	ErrNoSession        = "org.freedesktop.Secret.Error.NoSession"
	ErrNoSuchObject     = "org.freedesktop.Secret.Error.NoSuchObject"
	ErrAlreadyExists    = "org.freedesktop.Secret.Error.AlreadyExists"
	ErrNotSupported     = "org.freedesktop.Secret.Error.NotSupported"
	ErrUnknownMethod    = "org.freedesktop.DBus.Error.UnknownMethod"
	ErrUnknownObject    = "org.freedesktop.DBus.Error.UnknownObject"
	ErrServiceUnknown   = "org.freedesktop.DBus.Error.ServiceUnknown"
	ErrUnknownInterface = "org.freedesktop.DBus.Error.UnknownInterface"
)

// ErrorName returns the D-Bus error name carried by err, or "" if err is not a D-Bus error
func ErrorName(err error) string {
	var de dbus.Error
	if errors.As(err, &de) {
		return de.Name
	}
	var dep *dbus.Error
	if errors.As(err, &dep) && dep != nil {
		return dep.Name
	}
	return ""
}

// IsNoSuchObject reports whether err says the addressed object does not exist
func IsNoSuchObject(err error) bool {
	switch ErrorName(err) {
	case ErrNoSuchObject, ErrUnknownObject, ErrUnknownMethod:
		return true
	}
	return false
}

// IsLocked reports whether err says the object must be unlocked first
func IsLocked(err error) bool {
	return ErrorName(err) == ErrIsLocked
}
