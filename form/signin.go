package form

// SignInData is the sign-in form.
type SignInData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate requires a valid email and a non-empty password.
func (d SignInData) Validate() error {
	c := collector{}
	c.email("email", d.Email)
	c.present("password", d.Password, "password is required")
	return c.err()
}

// SignUpData is the account registration form, sent as-is to POST /users.
type SignUpData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate requires a name, a valid email and a password of at least
// MinPasswordLength characters.
func (d SignUpData) Validate() error {
	c := collector{}
	c.required("name", d.Name, "name is required")
	c.email("email", d.Email)
	c.password("password", d.Password)
	return c.err()
}
