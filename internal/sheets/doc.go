// Package sheets provides a client for appending rows to Google Sheets.
//
// The agent uses it to keep a job application tracker spreadsheet up to
// date: fields extracted from recruitment emails are mapped onto a fixed
// column layout (company, position, application_date, status, job_url,
// contact_email, deadline, notes) and appended as a new row.
package sheets
