// Package controller streams pattern rows to a knitting machine over a byte channel.
//
// # Overview
//
// A Controller owns one channel and at most one background run. Each run drives a
// protocol.Machine one step at a time:
//   - write the next row buffer, or
//   - read one byte and wait for ACK, or
//   - tick when there is nothing to do
//
// Steps are separated by a fixed tick interval (10ms by default) and never perform
// more than one channel operation.
//
// # Basic Usage
//
//	port := serialport.OpenerFor(serialport.Config{Port: "/dev/ttyUSB0"})
//	ctrl := controller.New(port, controller.WithLogger(logger))
//
//	if err := ctrl.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer ctrl.Disconnect()
//
//	rows := protocol.EncodePattern(pattern.RowData)
//	if err := ctrl.Send(ctx, rows); err != nil {
//	    log.Fatal(err)
//	}
//
// # Status
//
// Status returns a consistent snapshot of the controller. Only the run goroutine
// writes it. Subscribe to changes with WithStatusCallback:
//
//	ctrl := controller.New(port,
//	    controller.WithStatusCallback(func(s controller.Status) {
//	        fmt.Printf("[%s] %.0f%% row %d/%d\n", s.State, s.Progress*100, s.Row, s.Rows)
//	    }),
//	)
//
// # Stopping
//
// Stop is fire-and-forget: the run observes it at the start of its next step and
// returns to IDLE. It does not interrupt a write already in progress. Cancelling the
// context passed to Start has the same effect.
//
// # Errors
//
// A failed run leaves one of the protocol run errors in Status().LastError:
//   - protocol.RetryExhaustedError: a row write kept failing
//   - protocol.UnexpectedByteError: the machine answered with something other than ACK
//   - protocol.AckTimeoutError: the machine stayed silent for longer than the ACK timeout
//   - protocol.ChannelError: the channel failed or was disconnected
//
// The run goroutine recovers from panics in a step and reports them as StepPanicError.
package controller
