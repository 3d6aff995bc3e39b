package form

// ProfileData is the profile edit form. The password fields are optional as
// a group: filling OldPassword turns the form into a password change.
type ProfileData struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	OldPassword          string `json:"old_password"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ChangesPassword reports whether the form requests a password change.
func (d ProfileData) ChangesPassword() bool {
	return d.OldPassword != ""
}

// Validate checks name and email, and when OldPassword is set requires a new
// password and its confirmation. The confirmation must always equal the new
// password.
func (d ProfileData) Validate() error {
	c := collector{}
	c.required("name", d.Name, "name is required")
	c.email("email", d.Email)

	if d.ChangesPassword() {
		c.password("password", d.Password)
		c.present("password_confirmation", d.PasswordConfirmation, "password confirmation is required")
	}
	if d.PasswordConfirmation != d.Password {
		c.add("password_confirmation", "password confirmation does not match")
	}
	return c.err()
}

// ProfileRequest is the PUT /profile body.
type ProfileRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	OldPassword          string `json:"old_password,omitempty"`
	Password             string `json:"password,omitempty"`
	PasswordConfirmation string `json:"password_confirmation,omitempty"`
}

// Request builds the PUT /profile body; password fields are only included
// when the form changes the password.
func (d ProfileData) Request() ProfileRequest {
	req := ProfileRequest{
		Name:  d.Name,
		Email: d.Email,
	}
	if d.ChangesPassword() {
		req.OldPassword = d.OldPassword
		req.Password = d.Password
		req.PasswordConfirmation = d.PasswordConfirmation
	}
	return req
}
