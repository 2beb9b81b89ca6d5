package common

// AuthorizationHeaderName is the HTTP header carrying the session token.
const AuthorizationHeaderName = "Authorization"

// WelcomeChatTitle is the title of the per-user onboarding chat. At most one
// chat with this title is kept per owner.
const WelcomeChatTitle = "Welcome Chat"
