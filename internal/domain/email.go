package domain

// Notification texts sent on user lifecycle changes.
const (
	NotificationSubject     = "Welcome to ACGSS System"
	NotificationBodyCreated = "Your user has been created successfully."
	NotificationBodyUpdated = "Your user has been updated successfully."
	NotificationBodyDeleted = "Your user has been deleted successfully."
)

// Email is an outbound notification message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// NewNotification builds a lifecycle notification for the given recipient.
func NewNotification(to, body string) Email {
	return Email{To: to, Subject: NotificationSubject, Body: body}
}
