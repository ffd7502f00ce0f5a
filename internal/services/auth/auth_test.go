package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/events"
	customjwt "github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

const (
	sessionSecret      = "session-secret"
	verificationSecret = "verification-secret"
)

type fixture struct {
	repo          *UserRepoMock
	cache         *CacheMock
	events        *EventsMock
	verifier      *VerifierMock
	sessions      *customjwt.MakerImpl
	verifications *customjwt.MakerImpl
	svc           *auth.AuthService
}

func newFixture() *fixture {
	f := &fixture{
		repo:          new(UserRepoMock),
		cache:         new(CacheMock),
		events:        new(EventsMock),
		verifier:      new(VerifierMock),
		sessions:      customjwt.NewJWTMaker(customjwt.PurposeSession, sessionSecret, 30*time.Minute),
		verifications: customjwt.NewJWTMaker(customjwt.PurposeVerification, verificationSecret, time.Hour),
	}
	f.svc = auth.NewAuthService(sl.Discard(), f.repo, f.cache, f.events, f.verifier, f.sessions, f.verifications)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.repo.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.events.AssertExpectations(t)
	f.verifier.AssertExpectations(t)
}

func TestAuthService_Register(t *testing.T) {
	created := &models.User{
		UUID:     "0b7c1a8e-2a4f-4d47-9a0c-1f1b5f6f8e11",
		Username: "alice",
		Email:    "a@x.com",
		JoinDate: time.Now(),
	}

	tests := []struct {
		name       string
		username   string
		email      string
		password   string
		setupMocks func(f *fixture)
		wantErr    error
		errMsg     string
	}{
		{
			name:     "successful registration",
			username: "alice",
			email:    "a@x.com",
			password: "secret123",
			setupMocks: func(f *fixture) {
				f.repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Username == "alice" &&
						u.Email == "a@x.com" &&
						u.UUID != "" &&
						!u.IsVerified &&
						password.CompareHash(u.PasswordHash, "secret123") == nil
				})).Return(created, nil).Once()
				f.events.On("PublishUserCreated", mock.Anything, events.UserCreated{User: *created}).Return(nil).Once()
			},
		},
		{
			name:     "email is stored in lower case",
			username: "alice",
			email:    " A@X.com ",
			password: "secret123",
			setupMocks: func(f *fixture) {
				f.repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Email == "a@x.com"
				})).Return(created, nil).Once()
				f.events.On("PublishUserCreated", mock.Anything, mock.Anything).Return(nil).Once()
			},
		},
		{
			name:     "provisioning failure does not fail registration",
			username: "alice",
			email:    "a@x.com",
			password: "secret123",
			setupMocks: func(f *fixture) {
				f.repo.On("CreateUser", mock.Anything, mock.Anything).Return(created, nil).Once()
				f.events.On("PublishUserCreated", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
			},
		},
		{
			name:       "blank username",
			username:   "  ",
			email:      "a@x.com",
			password:   "secret123",
			setupMocks: func(_ *fixture) {},
			wantErr:    auth.ErrMissingField,
			errMsg:     "username",
		},
		{
			name:       "blank password",
			username:   "alice",
			email:      "a@x.com",
			password:   "",
			setupMocks: func(_ *fixture) {},
			wantErr:    auth.ErrMissingField,
			errMsg:     "password",
		},
		{
			name:     "duplicate username",
			username: "alice",
			email:    "b@x.com",
			password: "secret123",
			setupMocks: func(f *fixture) {
				f.repo.On("CreateUser", mock.Anything, mock.Anything).
					Return(nil, &storage.DuplicateKeyError{Field: "username"}).Once()
			},
			wantErr: storage.ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			got, err := f.svc.Register(context.Background(), tt.username, tt.email, tt.password)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, created, got)
			}
			f.assertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	rawPassword := "correctpassword"
	hashedPassword, err := password.GetHash(rawPassword)
	require.NoError(t, err)

	testUser := &models.User{
		UUID:         "user-1",
		Email:        "test@example.com",
		Username:     "testuser",
		PasswordHash: hashedPassword,
	}

	tests := []struct {
		name       string
		username   string
		password   string
		setupMocks func(f *fixture)
		wantErr    error
	}{
		{
			name:     "successful login",
			username: "testuser",
			password: rawPassword,
			setupMocks: func(f *fixture) {
				f.repo.On("GetUserByUsername", mock.Anything, "testuser").Return(testUser, nil).Once()
			},
		},
		{
			name:     "user not found",
			username: "nonexistent",
			password: "password",
			setupMocks: func(f *fixture) {
				f.repo.On("GetUserByUsername", mock.Anything, "nonexistent").
					Return(nil, storage.ErrUserNotFound).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			username: "testuser",
			password: "wrongpassword",
			setupMocks: func(f *fixture) {
				f.repo.On("GetUserByUsername", mock.Anything, "testuser").Return(testUser, nil).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			token, err := f.svc.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				claims, err := f.sessions.ParseToken(token)
				require.NoError(t, err)
				assert.Equal(t, testUser.UUID, claims.UserID)
			}
			f.assertExpectations(t)
		})
	}
}

func TestAuthService_Login_IndistinguishableFailures(t *testing.T) {
	hashed, err := password.GetHash("secret123")
	require.NoError(t, err)

	f := newFixture()
	f.repo.On("GetUserByUsername", mock.Anything, "alice").
		Return(&models.User{UUID: "u-1", Username: "alice", PasswordHash: hashed}, nil).Once()
	f.repo.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, storage.ErrUserNotFound).Once()

	_, errWrong := f.svc.Login(context.Background(), "alice", "wrong")
	_, errMissing := f.svc.Login(context.Background(), "ghost", "wrong")
	require.Error(t, errWrong)
	require.Error(t, errMissing)
	assert.Equal(t, errWrong.Error(), errMissing.Error())
}

func TestAuthService_Login_GenerateError(t *testing.T) {
	hashed, err := password.GetHash("secret123")
	require.NoError(t, err)

	repo := new(UserRepoMock)
	repo.On("GetUserByUsername", mock.Anything, "alice").
		Return(&models.User{UUID: "u-1", Username: "alice", PasswordHash: hashed}, nil).Once()
	jwtMock := new(JwtMakerMock)
	jwtMock.On("GenerateToken", "u-1").Return("", errors.New("token error")).Once()

	svc := auth.NewAuthService(sl.Discard(), repo, nil, new(EventsMock), new(VerifierMock), jwtMock, jwtMock)
	_, err = svc.Login(context.Background(), "alice", "secret123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token error")
	jwtMock.AssertExpectations(t)
}

func TestAuthService_Authenticate(t *testing.T) {
	user := &models.User{UUID: "user-1", Username: "alice", Email: "a@x.com", PasswordHash: "hash", IsVerified: true}

	t.Run("cache hit", func(t *testing.T) {
		f := newFixture()
		token, err := f.sessions.GenerateToken(user.UUID)
		require.NoError(t, err)
		cached := &models.User{UUID: user.UUID, Username: "alice", IsVerified: true}
		f.cache.On("GetUser", mock.Anything, user.UUID).Return(cached, true, nil).Once()

		got, err := f.svc.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, cached, got)
		f.assertExpectations(t)
	})

	t.Run("cache miss falls back to store", func(t *testing.T) {
		f := newFixture()
		token, err := f.sessions.GenerateToken(user.UUID)
		require.NoError(t, err)
		stored := *user
		f.cache.On("GetUser", mock.Anything, user.UUID).Return(nil, false, nil).Once()
		f.repo.On("GetUser", mock.Anything, user.UUID).Return(&stored, nil).Once()
		f.cache.On("SetUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.UUID == user.UUID && u.PasswordHash == ""
		})).Return(nil).Once()

		got, err := f.svc.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.Empty(t, got.PasswordHash)
		f.assertExpectations(t)
	})

	t.Run("unverified user is not cached", func(t *testing.T) {
		f := newFixture()
		token, err := f.sessions.GenerateToken(user.UUID)
		require.NoError(t, err)
		stored := *user
		stored.IsVerified = false
		f.cache.On("GetUser", mock.Anything, user.UUID).Return(nil, false, nil).Once()
		f.repo.On("GetUser", mock.Anything, user.UUID).Return(&stored, nil).Once()

		got, err := f.svc.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.False(t, got.IsVerified)
		f.cache.AssertNotCalled(t, "SetUser", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("unverified cache entry is ignored", func(t *testing.T) {
		f := newFixture()
		token, err := f.sessions.GenerateToken(user.UUID)
		require.NoError(t, err)
		stale := &models.User{UUID: user.UUID, Username: "alice"}
		stored := *user
		f.cache.On("GetUser", mock.Anything, user.UUID).Return(stale, true, nil).Once()
		f.repo.On("GetUser", mock.Anything, user.UUID).Return(&stored, nil).Once()
		f.cache.On("SetUser", mock.Anything, mock.Anything).Return(nil).Once()

		got, err := f.svc.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, got.IsVerified)
		f.assertExpectations(t)
	})

	t.Run("cache error is not fatal", func(t *testing.T) {
		f := newFixture()
		token, err := f.sessions.GenerateToken(user.UUID)
		require.NoError(t, err)
		stored := *user
		f.cache.On("GetUser", mock.Anything, user.UUID).Return(nil, false, errors.New("redis down")).Once()
		f.repo.On("GetUser", mock.Anything, user.UUID).Return(&stored, nil).Once()
		f.cache.On("SetUser", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

		got, err := f.svc.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, user.UUID, got.UUID)
	})

	t.Run("user deleted", func(t *testing.T) {
		f := newFixture()
		token, err := f.sessions.GenerateToken(user.UUID)
		require.NoError(t, err)
		f.cache.On("GetUser", mock.Anything, user.UUID).Return(nil, false, nil).Once()
		f.repo.On("GetUser", mock.Anything, user.UUID).Return(nil, storage.ErrUserNotFound).Once()

		_, err = f.svc.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	rejected := []struct {
		name    string
		token   func(f *fixture) string
		wantErr error
	}{
		{name: "empty", token: func(_ *fixture) string { return "" }},
		{name: "garbage", token: func(_ *fixture) string { return "not-a-token" }, wantErr: customjwt.ErrMalformed},
		{
			name: "verification token used as session",
			token: func(f *fixture) string {
				tok, _ := f.verifications.GenerateToken(user.UUID)
				return tok
			},
			wantErr: customjwt.ErrInvalidSignature,
		},
	}
	for _, tt := range rejected {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Authenticate(context.Background(), tt.token(f))
			require.ErrorIs(t, err, auth.ErrUnauthorized)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			f.assertExpectations(t)
		})
	}
}

func TestAuthService_Verify(t *testing.T) {
	const uid = "user-1"

	t.Run("newly verified", func(t *testing.T) {
		f := newFixture()
		token, err := f.verifications.GenerateToken(uid)
		require.NoError(t, err)
		joined := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		f.repo.On("GetUser", mock.Anything, uid).
			Return(&models.User{UUID: uid, Username: "alice", PasswordHash: "h", JoinDate: joined}, nil).Once()
		f.repo.On("SaveUser", mock.Anything, models.User{
			UUID: uid, Username: "alice", PasswordHash: "h", JoinDate: joined, IsVerified: true,
		}).Return(nil).Once()
		f.cache.On("InvalidateUser", mock.Anything, uid).Return(nil).Once()

		res, err := f.svc.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, auth.VerifyNewlyVerified, res.Status)
		assert.True(t, res.User.IsVerified)
		f.assertExpectations(t)
	})

	t.Run("replay on verified account changes nothing", func(t *testing.T) {
		f := newFixture()
		token, err := f.verifications.GenerateToken(uid)
		require.NoError(t, err)
		f.repo.On("GetUser", mock.Anything, uid).
			Return(&models.User{UUID: uid, Username: "alice", IsVerified: true}, nil).Twice()

		for range 2 {
			res, err := f.svc.Verify(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, auth.VerifyAlreadyVerified, res.Status)
		}
		f.repo.AssertNotCalled(t, "SaveUser", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture()
		token, err := f.verifications.GenerateToken(uid)
		require.NoError(t, err)
		f.repo.On("GetUser", mock.Anything, uid).Return(nil, storage.ErrUserNotFound).Once()

		_, err = f.svc.Verify(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("store failure on save", func(t *testing.T) {
		f := newFixture()
		token, err := f.verifications.GenerateToken(uid)
		require.NoError(t, err)
		f.repo.On("GetUser", mock.Anything, uid).Return(&models.User{UUID: uid}, nil).Once()
		f.repo.On("SaveUser", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		_, err = f.svc.Verify(context.Background(), token)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrUnauthorized)
	})

	rejected := []struct {
		name    string
		token   func(f *fixture) string
		wantErr error
	}{
		{name: "garbage", token: func(_ *fixture) string { return "garbage" }, wantErr: customjwt.ErrMalformed},
		{
			name: "session token",
			token: func(f *fixture) string {
				tok, _ := f.sessions.GenerateToken(uid)
				return tok
			},
			wantErr: customjwt.ErrInvalidSignature,
		},
		{
			name: "expired",
			token: func(_ *fixture) string {
				past := customjwt.NewJWTMaker(customjwt.PurposeVerification, verificationSecret, time.Minute,
					customjwt.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
				tok, _ := past.GenerateToken(uid)
				return tok
			},
			wantErr: customjwt.ErrExpired,
		},
	}
	for _, tt := range rejected {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Verify(context.Background(), tt.token(f))
			require.ErrorIs(t, err, auth.ErrUnauthorized)
			assert.ErrorIs(t, err, tt.wantErr)
			f.assertExpectations(t)
		})
	}
}

func TestAuthService_ResendVerification(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(f *fixture)
		wantErr    bool
	}{
		{
			name: "unverified user gets a new link",
			setupMocks: func(f *fixture) {
				u := &models.User{UUID: "u-1", Email: "a@x.com"}
				f.repo.On("GetUserByEmail", mock.Anything, "a@x.com").Return(u, nil).Once()
				f.verifier.On("SendVerification", mock.Anything, *u).Return(nil).Once()
			},
		},
		{
			name: "unknown email succeeds silently",
			setupMocks: func(f *fixture) {
				f.repo.On("GetUserByEmail", mock.Anything, "a@x.com").Return(nil, storage.ErrUserNotFound).Once()
			},
		},
		{
			name: "verified user succeeds silently",
			setupMocks: func(f *fixture) {
				f.repo.On("GetUserByEmail", mock.Anything, "a@x.com").
					Return(&models.User{UUID: "u-1", IsVerified: true}, nil).Once()
			},
		},
		{
			name: "publish failure",
			setupMocks: func(f *fixture) {
				f.repo.On("GetUserByEmail", mock.Anything, "a@x.com").Return(&models.User{UUID: "u-1"}, nil).Once()
				f.verifier.On("SendVerification", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			err := f.svc.ResendVerification(context.Background(), " a@x.com ")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			f.assertExpectations(t)
		})
	}
}
