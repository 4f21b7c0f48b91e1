package dynamo

// DynamoDB attribute names for the verification table.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEmail       = "email"
	fieldPurpose     = "purpose"
	fieldRecordID    = "record_id"
	fieldCode        = "code"
	fieldExpiresAt   = "expires_at"
	fieldLastSentAt  = "last_sent_at"
	fieldResendCount = "resend_count"
	fieldTTL         = "ttl"
)
