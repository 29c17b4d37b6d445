package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/linkclicks/internal/apperr"
	"github.com/patric-chuzhbe/linkclicks/internal/db/memorystorage"
	"github.com/patric-chuzhbe/linkclicks/internal/mockstorage"
	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

func TestUserServiceRegister(t *testing.T) {
	ctx := context.Background()
	db, err := memorystorage.New()
	require.NoError(t, err)
	users := NewUserService(db)

	usr, err := users.Register(ctx, models.CreateUserRequest{
		Name:     " Ana ",
		Email:    "ana@example.com",
		Password: "Str0ng!pw",
	})
	require.NoError(t, err)
	assert.NotZero(t, usr.ID)
	assert.Equal(t, "Ana", usr.Name)
	assert.NotEqual(t, "Str0ng!pw", usr.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(usr.Password), []byte("Str0ng!pw")))

	loaded, err := users.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", loaded.Email)

	_, err = users.GetByID(ctx, usr.ID+100)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = users.Register(ctx, models.CreateUserRequest{
		Name:     "Ana again",
		Email:    "ana@example.com",
		Password: "An0ther!pw",
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUserServiceRegisterLosesEmailRace(t *testing.T) {
	db := new(mockstorage.StorageMock)
	db.On("GetUserByEmail", mock.Anything, "ana@example.com").Return(nil, false, nil)
	db.On("CreateUser", mock.Anything, mock.Anything).Return(models.ErrEmailTaken)

	_, err := NewUserService(db).Register(context.Background(), models.CreateUserRequest{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "Str0ng!pw",
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	db.AssertExpectations(t)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	type tTestCase struct {
		name string
		req  models.CreateUserRequest
	}
	testCases := []tTestCase{
		{name: "missing name", req: models.CreateUserRequest{Email: "a@b.co", Password: "Str0ng!pw"}},
		{name: "email without at", req: models.CreateUserRequest{Name: "A", Email: "ab.co", Password: "Str0ng!pw"}},
		{name: "email without dot", req: models.CreateUserRequest{Name: "A", Email: "a@bco", Password: "Str0ng!pw"}},
		{name: "weak password", req: models.CreateUserRequest{Name: "A", Email: "a@b.co", Password: "password"}},
	}

	db, err := memorystorage.New()
	require.NoError(t, err)
	users := NewUserService(db)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := users.Register(context.Background(), tc.req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	count, err := db.GetNumberOfUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestIsStrongPassword(t *testing.T) {
	type tTestCase struct {
		password string
		want     bool
	}
	testCases := []tTestCase{
		{password: "Aa1!aa", want: true},
		{password: "Aa1_bcdef", want: true},
		{password: "Aa1!a", want: false},
		{password: "aa1!aa", want: false},
		{password: "AA1!AA", want: false},
		{password: "Aab!aa", want: false},
		{password: "Aa1aaa", want: false},
		{password: "", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.password, func(t *testing.T) {
			assert.Equal(t, tc.want, IsStrongPassword(tc.password))
		})
	}
}
