// Package calendar provides a client for macOS Calendar.
//
// Every operation builds an AppleScript program with the applescript
// package, runs it through an osascript.Executor under the client's
// deadline, and turns the outcome into Go values or a classified
// *failure.Error.
//
// Example usage:
//
//	runner := osascript.New(osascript.Config{})
//	client := calendar.NewClient(runner, 30*time.Second)
//
//	events, err := client.ListTodayEvents(ctx, "Work")
//	if err != nil {
//	    log.Fatal(err)
//	}
package calendar
