// Package connectors holds the clients for the external services reports
// read from and deliver to.
//
// Sources implement driven.ReportSource: google/ads, google/analytics,
// google/merchant and facebook. Sinks and notifiers implement the
// driven sink ports: google/sheets, google/drive, google/gmail and slack.
package connectors
