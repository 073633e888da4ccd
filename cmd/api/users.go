package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/hafizmfadli/film-library/internal/data"
	"github.com/hafizmfadli/film-library/internal/validator"
)

func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	filters := app.readFilters(r.URL.Query(), "username", data.UserSortSafelist, v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	users, metadata, err := app.models.Users.GetAll(filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"users": users, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createUserHandler creates an account and sends the welcome e-mail in the
// background when an address was given.
func (app *application) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		Password    string `json:"password"`
		IsSuperuser bool   `json:"is_superuser"`
		IsStaff     bool   `json:"is_staff"`
		IsActive    *bool  `json:"is_active"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := &data.User{
		Username:    input.Username,
		Email:       input.Email,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		IsSuperuser: input.IsSuperuser,
		IsStaff:     input.IsStaff,
		IsActive:    true,
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	v := validator.New()

	// Hashing an over-long password would fail inside bcrypt, so reject it
	// before calling Set.
	data.ValidatePasswordPlaintext(v, input.Password)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = user.Password.Set(input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if data.ValidateUser(v, user); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Users.Insert(user)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateUsername):
			v.AddError("username", "a user with this username already exists")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if user.Email != "" {
		app.background(func() {
			tmplData := map[string]any{
				"username": user.Username,
				"userID":   user.ID,
			}

			err := app.mailer.Send(user.Email, "user_welcome.tmpl", tmplData)
			if err != nil {
				app.logger.PrintError(err, map[string]string{"user_id": strconv.FormatInt(user.ID, 10)})
			}
		})
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) showUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := app.loadUser(w, r)
	if !ok {
		return
	}

	err := app.writeJSON(w, http.StatusOK, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateUserHandler applies a partial update. Omitted fields keep their
// current value.
func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := app.loadUser(w, r)
	if !ok {
		return
	}

	var input struct {
		Username    *string `json:"username"`
		Email       *string `json:"email"`
		FirstName   *string `json:"first_name"`
		LastName    *string `json:"last_name"`
		Password    *string `json:"password"`
		IsSuperuser *bool   `json:"is_superuser"`
		IsStaff     *bool   `json:"is_staff"`
		IsActive    *bool   `json:"is_active"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.IsSuperuser != nil {
		user.IsSuperuser = *input.IsSuperuser
	}
	if input.IsStaff != nil {
		user.IsStaff = *input.IsStaff
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	v := validator.New()

	if input.Password != nil {
		if data.ValidatePasswordPlaintext(v, *input.Password); !v.Valid() {
			app.failedValidationResponse(w, r, v.Errors)
			return
		}

		err = user.Password.Set(*input.Password)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	if data.ValidateUser(v, user); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Users.Update(user)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrEditConflict):
			app.editConflictResponse(w, r)
		case errors.Is(err, data.ErrDuplicateUsername):
			v.AddError("username", "a user with this username already exists")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteUserHandler removes the account together with the catalog entries it
// added and all its membership records.
func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.models.Users.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "user successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// loadUser fetches the user named by the :id parameter, writing the error
// response itself when that fails.
func (app *application) loadUser(w http.ResponseWriter, r *http.Request) (*data.User, bool) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return nil, false
	}

	user, err := app.models.Users.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return nil, false
	}

	return user, true
}
