package enums

// NotificationType maps to the notification_type column.
type NotificationType string

const (
	NotificationTypeOrderConfirmation NotificationType = "order_confirmation"
	NotificationTypeOrderStatus       NotificationType = "order_status"
	NotificationTypeOrderCancelled    NotificationType = "order_cancelled"
)

var validNotificationTypes = values[NotificationType]{
	NotificationTypeOrderConfirmation,
	NotificationTypeOrderStatus,
	NotificationTypeOrderCancelled,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	return validNotificationTypes.has(n)
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return validNotificationTypes.parse(value, "notification type")
}
