/*
Package account 登录、令牌校验与账户画像读取

账户的注册与维护由外部模块负责；这里只提供订单核心依赖的会话能力，
以及 worker 每日执行的未确认客户账户清理。
*/
package account

import (
	"context"
	"errors"
	"time"

	"orderflow/domain/account"
	"orderflow/pkg/validation"

	"go.uber.org/zap"
)

// LoginCommand 登录入参
type LoginCommand struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	AccountID int64     `json:"accountId"`
	Role      string    `json:"role"`
}

// TokenManager issues and verifies session tokens
type TokenManager interface {
	account.TokenIssuer
	account.TokenVerifier
}

type Service struct {
	accounts account.Repository
	hasher   account.PasswordHasher
	tokens   TokenManager
	log      *zap.Logger
}

func NewService(accounts account.Repository, hasher account.PasswordHasher, tokens TokenManager, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{accounts: accounts, hasher: hasher, tokens: tokens, log: log.Named("account")}
}

// Login 未知登录名与错误密码返回同一错误
func (s *Service) Login(ctx context.Context, cmd LoginCommand) (*LoginResult, error) {
	if err := validation.Struct("account", cmd); err != nil {
		return nil, err
	}

	acc, err := s.accounts.FindByLogin(ctx, cmd.Login)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, account.NewInvalidCredentialsError()
		}
		return nil, err
	}
	if err := s.hasher.Compare(acc.PasswordHash(), cmd.Password); err != nil {
		return nil, err
	}
	if acc.Capabilities().Terminated {
		return nil, account.NewAccountTerminatedError(acc.ID())
	}

	token, expiresAt, err := s.tokens.Issue(account.Claims{AccountID: acc.ID(), Role: acc.Role()})
	if err != nil {
		return nil, err
	}
	s.log.Info("Account logged in", zap.Int64("account_id", acc.ID()), zap.String("role", acc.Role()))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, AccountID: acc.ID(), Role: acc.Role()}, nil
}

func (s *Service) Authenticate(ctx context.Context, token string) (account.Claims, error) {
	return s.tokens.Verify(token)
}

// Profile 每次从存储读取，不缓存
func (s *Service) Profile(ctx context.Context, accountID int64) (account.Profile, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return account.Profile{}, err
	}
	return acc.Profile(), nil
}

// CleanupUnconfirmed deletes client accounts still unconfirmed UnconfirmedTTL after registration
func (s *Service) CleanupUnconfirmed(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-account.UnconfirmedTTL)
	deleted, err := s.accounts.DeleteUnconfirmedClients(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("Unconfirmed client accounts removed", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	return deleted, nil
}
