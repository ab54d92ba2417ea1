package proxy

import "context"

const DefaultUserRole = "proxy_admin"

// InternalRoles are the roles sync and list treat as managed users.
var InternalRoles = MakeSet[string]([]string{
	"internal_user",
	"internal_user_viewer",
	"proxy_admin",
	"proxy_admin_viewer",
	"user",
	"default",
	"end_user",
})

// IUserSource produces the desired state for a sync run.
type IUserSource interface {
	Users(func(*DesiredUser))
	Populate(ctx context.Context) error
}

// IDirectory is the remote user/team admin API of the proxy.
type IDirectory interface {
	ListUsers(ctx context.Context) ([]*ObservedUser, error)
	ListTeams(ctx context.Context) ([]*Team, error)
	UserInfo(ctx context.Context, userId string) (map[string]any, error)
	CreateUser(ctx context.Context, rq *NewUserRequest) (*CreatedUser, error)
	UpdateUser(ctx context.Context, rq *UpdateUserRequest) (map[string]any, error)
	DeleteUser(ctx context.Context, userId string) error
	UpdateKeyAlias(ctx context.Context, key string, alias string) error
	GenerateInvitationUrl(ctx context.Context, userId string) string
}

type DesiredUser struct {
	Email string
	Role  string
	// TeamName is a space separated list of team names. Empty means teams are left as is.
	TeamName string
	KeyName  string
}

type ObservedUser struct {
	Id        string
	Email     string
	Role      string
	Teams     []string
	Models    []string
	KeyCount  int64
	CreatedAt string
	UpdatedAt string
	Raw       map[string]any
}

// IsValid reports whether the user takes part in reconciliation.
func (u *ObservedUser) IsValid() bool {
	return len(u.Email) > 0 && InternalRoles.Has(u.Role)
}

type Team struct {
	Id    string
	Name  string
	Alias string
}

func (t *Team) DisplayName() string {
	if len(t.Alias) > 0 {
		return t.Alias
	}
	return t.Name
}

type NewUserRequest struct {
	Email  string `json:"user_email"`
	Role   string `json:"user_role"`
	TeamId string `json:"team_id,omitempty"`
}

type UpdateUserRequest struct {
	UserId string   `json:"user_id"`
	Role   string   `json:"user_role,omitempty"`
	TeamId string   `json:"team_id,omitempty"`
	Teams  []string `json:"teams,omitempty"`
}

type CreatedUser struct {
	UserId string
	Email  string
	Role   string
	TeamId string
	// Key is the virtual key minted with the user. It cannot be fetched again later.
	Key    string
	Models []string
	Raw    map[string]any
}

type SyncAction string

const (
	ActionAdded     SyncAction = "ADDED"
	ActionDeleted   SyncAction = "DELETED"
	ActionUpdated   SyncAction = "UPDATED"
	ActionUnchanged SyncAction = "UNCHANGED"
)

type SyncResult struct {
	Action   SyncAction
	Email    string
	UserId   string
	Role     string
	TeamName string
	ApiKey   string
	Success  bool
	Error    string
}

type SyncStat struct {
	Plan    *SyncPlan
	Results []*SyncResult
}

func (ss *SyncStat) Count(action SyncAction, success bool) (count int) {
	for _, r := range ss.Results {
		if r.Action == action && r.Success == success {
			count++
		}
	}
	return
}

type IProxySync interface {
	Source() IUserSource
	Plan(ctx context.Context) (*SyncPlan, error)
	Sync(ctx context.Context) (*SyncStat, error)
}
