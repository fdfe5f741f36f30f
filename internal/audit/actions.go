package audit

// Actions recorded by the auth and tenant code paths.
const (
	ActionRegister          = "register"
	ActionOTPVerified       = "otp_verified"
	ActionOTPFailed         = "otp_failed"
	ActionOTPResent         = "otp_resent"
	ActionMagicLinkIssued   = "magic_link_issued"
	ActionMagicLinkConsumed = "magic_link_consumed"
	ActionMagicLinkRejected = "magic_link_rejected"
	ActionLogin             = "login"
	ActionLoginFailure      = "login_failure"
	ActionRefresh           = "refresh"
	ActionRefreshReuse      = "refresh_reuse"
	ActionLogout            = "logout"
	ActionSessionRevoked    = "session_revoked"
	ActionTenantRejected    = "tenant_rejected"
)

// Resources named in audit entries.
const (
	ResourceUser      = "user"
	ResourceChallenge = "otp_challenge"
	ResourceMagicLink = "magic_link"
	ResourceSession   = "session"
	ResourceInstance  = "instance"
)
