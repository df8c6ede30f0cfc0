// Package calendar renders event records for calendar applications: Google
// Calendar deep links, iCalendar files and Japanese display strings.
package calendar
