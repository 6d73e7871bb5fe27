package models

import "time"

// NewsletterIssue is created once per successful publish.
type NewsletterIssue struct {
	NewsletterIssueID string
	Title             string
	TextContent       string
	PublishedAt       time.Time
}

// DeliveryTask is a row in the delivery queue. Its primary key is the pair
// (NewsletterIssueID, SubscriberEmail); at most one row exists per pair.
type DeliveryTask struct {
	NewsletterIssueID string
	SubscriberEmail   string
}
