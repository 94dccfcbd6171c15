package model

// Notification is a completion message with the rendered report attached
type Notification struct {
	Subject        string
	HTMLBody       string
	AttachmentName string
	Attachment     []byte
}
