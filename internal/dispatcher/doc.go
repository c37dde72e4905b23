// Package dispatcher bridges push messages delivered by a messaging transport
// to the host's notification presentation capability.
//
// A Dispatcher is constructed once per process and passed explicitly to the
// code that wires transports. Initialize registers its single
// background-message handler; every later call returns
// push.ErrAlreadyInitialized and registers nothing. The handler never lets an
// error or panic escape to the transport's receive loop.
package dispatcher
