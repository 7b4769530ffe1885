/*
Package account 账户与会话能力

Account 由外部账户管理模块维护；订单核心只读取角色与能力标志，
用于登录、接口鉴权以及实时通知的接收资格判断。
*/
package account

import (
	"time"
)

// 角色名称与原系统保持一致
const (
	RoleAdmin   = "Администратор"
	RoleManager = "Менеджер"
	RoleClient  = "Пользователь"
)

// UnconfirmedTTL 未确认邮箱的客户账户保留时长
const UnconfirmedTTL = 24 * time.Hour

// Account 账户聚合根
type Account struct {
	id             int64
	login          string
	passwordHash   string
	role           string
	email          string
	emailConfirmed bool
	registeredAt   time.Time
	capabilities   Capabilities
}

// Capabilities 员工账户的功能开关
type Capabilities struct {
	OrderManagement bool
	MessageCenter   bool
	Terminated      bool
}

// ReconstructionDTO 从存储层重建账户
type ReconstructionDTO struct {
	ID             int64
	Login          string
	PasswordHash   string
	Role           string
	Email          string
	EmailConfirmed bool
	RegisteredAt   time.Time
	Capabilities   Capabilities
}

func RebuildFromDTO(dto ReconstructionDTO) *Account {
	return &Account{
		id:             dto.ID,
		login:          dto.Login,
		passwordHash:   dto.PasswordHash,
		role:           dto.Role,
		email:          dto.Email,
		emailConfirmed: dto.EmailConfirmed,
		registeredAt:   dto.RegisteredAt,
		capabilities:   dto.Capabilities,
	}
}

func (a *Account) ID() int64                  { return a.id }
func (a *Account) Login() string              { return a.login }
func (a *Account) PasswordHash() string       { return a.passwordHash }
func (a *Account) Role() string               { return a.role }
func (a *Account) Email() string              { return a.email }
func (a *Account) EmailConfirmed() bool       { return a.emailConfirmed }
func (a *Account) RegisteredAt() time.Time    { return a.registeredAt }
func (a *Account) Capabilities() Capabilities { return a.capabilities }

// Profile 返回连接时刻的角色与能力快照
func (a *Account) Profile() Profile {
	return Profile{
		AccountID:    a.id,
		Role:         a.role,
		Capabilities: a.capabilities,
	}
}

// IsStaleUnconfirmedClient 客户账户注册超过 TTL 仍未确认邮箱
func (a *Account) IsStaleUnconfirmedClient(now time.Time) bool {
	return a.role == RoleClient && !a.emailConfirmed && a.registeredAt.Before(now.Add(-UnconfirmedTTL))
}

// Profile 会话期间使用的账户快照
type Profile struct {
	AccountID int64
	Role      string
	Capabilities
}

// ReceivesNewOrders 新订单通知只推送给启用订单管理且未被停用的经理
func (p Profile) ReceivesNewOrders(managerRole string) bool {
	return p.Role == managerRole && p.OrderManagement && !p.Terminated
}

// Claims 令牌中携带的身份信息
type Claims struct {
	AccountID int64
	Role      string
}
