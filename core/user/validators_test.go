package user

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/bartventer/elearning-site/core"
)

func Test_checkPassword(t *testing.T) {
	LoadCommonPasswords()

	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{name: "too short", pwd: "aB3$", want: pwdMinLenTag},
		{name: "whitespace", pwd: "correct horse", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "2718281828", want: pwdNotAllNumTag},
		{name: "similar to username", pwd: "jdoe_student", want: pwdAttrSimTag},
		{name: "similar to email user", pwd: "john.doe.1", want: pwdAttrSimTag},
		{name: "common", pwd: "sunshine", want: pwdNoCommonTag},
		{name: "common, any case", pwd: "SunShine", want: pwdNoCommonTag},
		{name: "ok", pwd: "Tr0ub4dor&3x", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkPassword(tt.pwd, "John Doe", "jdoe_student", "john.doe@test.cd"))
		})
	}
}

func TestNewUser_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	svc := NewService(nopRepo{})

	tests := []struct {
		name      string
		nu        NewUser
		wantField string
	}{
		{name: "no username nor email", nu: NewUser{Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x"}, wantField: "username"},
		{name: "bad username", nu: NewUser{Username: "j doe!", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x"}, wantField: "username"},
		{name: "bad email", nu: NewUser{Email: "lol", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x"}, wantField: "email"},
		{name: "passwords differ", nu: NewUser{Username: "jdoe", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3y"}, wantField: "password_confirm"},
		{name: "weak password", nu: NewUser{Username: "jdoe", Password: "password", PasswordConfirm: "password"}, wantField: "password"},
		{name: "bad roles", nu: NewUser{Username: "jdoe", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x", Roles: []string{"root:"}}, wantField: "roles"},
		{name: "ok", nu: NewUser{Username: " JDoe ", Email: "jdoe@test.cd", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x", Roles: StudentRoles}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(context.Background(), validate, svc)
			if tt.wantField == "" {
				assert.NoError(t, err)
				assert.Equal(t, "jdoe", tt.nu.Username, "cleaned")
				return
			}
			verrs, ok := err.(validator.ValidationErrors)
			if !assert.True(t, ok, "got %v", err) {
				return
			}
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

type nopRepo struct{}

func (nopRepo) CheckUsernameUniqueness(context.Context, string, string, ...User) error { return nil }
func (nopRepo) CreateUser(_ context.Context, usr User) (User, error)                 { return usr, nil }
func (nopRepo) GetUser(context.Context, GetFilter) (User, error)                     { return User{}, ErrNotFound }
func (nopRepo) UpdateUser(_ context.Context, usr User) (User, error)                 { return usr, nil }

func TestUser_roles(t *testing.T) {
	admin := User{Roles: AdminRoles}
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.IsInstructor())
	assert.False(t, admin.IsStudent())

	inst := User{Roles: InstructorRoles}
	assert.False(t, inst.IsAdmin())
	assert.True(t, inst.IsInstructor())

	assert.Equal(t, 30, MaxRolePriority(AllRoles))
	assert.Equal(t, 0, MaxRolePriority(nil))
}
