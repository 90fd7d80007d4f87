package response

// Message is the plain {"message": ...} body used for errors and
// status-only replies.
type Message struct {
	Message string `json:"message"`
}

func Error(message string) Message {
	return Message{Message: message}
}

func Info(message string) Message {
	return Message{Message: message}
}

// Claim carries the code of a freshly claimed coupon.
type Claim struct {
	Message string `json:"message"`
	Coupon  string `json:"coupon"`
}

func Claimed(code string) Claim {
	return Claim{
		Message: "Coupon claimed successfully",
		Coupon:  code,
	}
}

// Session is the login response.
type Session struct {
	Token string `json:"token"`
}

func Token(token string) Session {
	return Session{Token: token}
}

// Coupon wraps an admin mutation result together with the affected record.
type Coupon struct {
	Message string      `json:"message"`
	Coupon  interface{} `json:"coupon"`
}

func WithCoupon(message string, coupon interface{}) Coupon {
	return Coupon{Message: message, Coupon: coupon}
}
