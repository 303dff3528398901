package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
)

// ErrSignupNotSupported indicates that signup is not supported.
var ErrSignupNotSupported = errors.New("signup not supported")

// TermAuth drives the interactive login the session generator runs once.
// Phone and password come from the environment when set, otherwise from
// the terminal.
type TermAuth struct {
	phone    string
	password string
	logger   *zerolog.Logger
}

var _ auth.UserAuthenticator = (*TermAuth)(nil)

func NewTermAuth(phone, password string, logger *zerolog.Logger) *TermAuth {
	return &TermAuth{phone: phone, password: password, logger: logger}
}

func (t *TermAuth) Flow() auth.Flow {
	return auth.NewFlow(t, auth.SendCodeOptions{})
}

func (t *TermAuth) Phone(_ context.Context) (string, error) {
	var phone string

	var err error

	if t.phone != "" {
		phone = t.phone
	} else {
		fmt.Print("Enter phone: ")

		phone, err = bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", err
		}
	}

	phone = sanitizePhone(phone)
	t.logger.Info().Str("phone", maskPhone(phone)).Msg("Using phone number")

	if len(phone) < 10 {
		t.logger.Warn().Int("length", len(phone)).Msg("Phone number seems too short, it might be invalid. Ensure it includes country code (e.g. +1...)")
	}

	return phone, nil
}

func (t *TermAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Print("Enter code: ")

	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(code), nil
}

func (t *TermAuth) Password(_ context.Context) (string, error) {
	if t.password != "" {
		return t.password, nil
	}

	fmt.Print("Enter 2FA password: ")

	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(password), nil
}

func (t *TermAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (t *TermAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, ErrSignupNotSupported
}

func sanitizePhone(phone string) string {
	var sb strings.Builder

	phone = strings.TrimSpace(phone)

	if strings.HasPrefix(phone, "+") {
		sb.WriteByte('+')

		phone = phone[1:]
	}

	for _, char := range phone {
		if char >= '0' && char <= '9' {
			sb.WriteRune(char)
		}
	}

	return sb.String()
}

func maskPhone(phone string) string {
	if len(phone) < 7 {
		return "****"
	}

	return phone[:3] + "****" + phone[len(phone)-2:]
}
