// Package dbus is a client for the org.freedesktop.Notifications D-Bus
// interface. It sends Notify calls to whichever notification server owns the
// bus name on the session bus, per the freedesktop.org notification
// specification.
package dbus
