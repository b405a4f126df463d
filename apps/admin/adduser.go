package main

import (
	"context"
	"time"

	"github.com/bartventer/elearning-site/core"
	"github.com/bartventer/elearning-site/core/user"
)

// addUser updates or creates a user.User. Users are students unless instructor or admin is set.
func (cli *commandLine) addUser(uname, email, pwd string, instructor, admin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	var usr user.User
	var err error
	lookup := uname
	if lookup == "" {
		lookup = email
	}
	exists := true
	if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: lookup}); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		exists = false
		now := time.Now().UTC()
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	switch {
	case admin:
		usr.Roles = user.AllRoles
	case instructor:
		usr.Roles = user.InstructorRoles
	case !exists:
		usr.Roles = user.StudentRoles
	}
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return err
	}
	_, err = cli.usrRepo.CreateUser(ctx, usr)
	return err
}
