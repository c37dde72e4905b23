package dbus

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method string
	args   []interface{}
}

type fakeObject struct {
	calls []recordedCall
	reply []interface{}
	err   error
}

func (o *fakeObject) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	o.calls = append(o.calls, recordedCall{method: method, args: args})
	return &dbus.Call{Method: method, Args: args, Body: o.reply, Err: o.err}
}

func TestClient_Notify(t *testing.T) {
	obj := &fakeObject{reply: []interface{}{uint32(7)}}
	c := NewClient(obj, nil)

	n := &Notification{
		AppName:       "pushd",
		AppIcon:       "/icons/Icon-192.png",
		Summary:       "Recall Alert",
		Body:          "Product X recalled",
		ExpireTimeout: -1,
	}
	n.SetHint("urgency", UrgencyNormal)

	id, err := c.Notify(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), id)

	require.Len(t, obj.calls, 1)
	call := obj.calls[0]
	assert.Equal(t, "org.freedesktop.Notifications.Notify", call.method)
	require.Len(t, call.args, 8)
	assert.Equal(t, "pushd", call.args[0])
	assert.Equal(t, uint32(0), call.args[1])
	assert.Equal(t, "/icons/Icon-192.png", call.args[2])
	assert.Equal(t, "Recall Alert", call.args[3])
	assert.Equal(t, "Product X recalled", call.args[4])
	assert.Equal(t, []string{}, call.args[5])
	assert.Equal(t, int32(-1), call.args[7])
}

func TestClient_NotifyNilHints(t *testing.T) {
	obj := &fakeObject{reply: []interface{}{uint32(1)}}
	c := NewClient(obj, nil)

	_, err := c.Notify(context.Background(), &Notification{Summary: "s"})
	require.NoError(t, err)
	assert.Equal(t, map[string]dbus.Variant{}, obj.calls[0].args[6])
}

func TestClient_NotifyError(t *testing.T) {
	obj := &fakeObject{err: errors.New("org.freedesktop.DBus.Error.ServiceUnknown")}
	c := NewClient(obj, nil)

	_, err := c.Notify(context.Background(), &Notification{Summary: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ServiceUnknown")
}

func TestClient_GetServerInformation(t *testing.T) {
	obj := &fakeObject{reply: []interface{}{"dunst", "knopwob", "1.11.0", "1.2"}}
	c := NewClient(obj, nil)

	info, err := c.GetServerInformation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ServerInfo{Name: "dunst", Vendor: "knopwob", Version: "1.11.0", SpecVersion: "1.2"}, info)
	assert.Equal(t, "org.freedesktop.Notifications.GetServerInformation", obj.calls[0].method)
}

func TestClient_GetCapabilities(t *testing.T) {
	obj := &fakeObject{reply: []interface{}{[]string{"body", "icon-static"}}}
	c := NewClient(obj, nil)

	caps, err := c.GetCapabilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "icon-static"}, caps)
}
