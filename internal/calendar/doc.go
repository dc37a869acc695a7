// Package calendar provides a client for interacting with the Google Calendar API.
//
// The agent uses it to create events and deadline reminders derived from
// emails (interviews, meetings, submission deadlines) and to list upcoming
// events on a calendar.
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := calendar.NewClient(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// List upcoming events
//	events, err := client.ListEvents("primary", time.Now(), time.Now().AddDate(0, 0, 7), "")
//	if err != nil {
//	    log.Fatal(err)
//	}
package calendar
