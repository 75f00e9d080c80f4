package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"

	"github.com/iliyamo/movie-storefront/internal/model"
	"github.com/iliyamo/movie-storefront/internal/repository"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

const (
	ObjectOrders  = "orders"
	ActionListAll = "list_all"
	subjectPrefix = "group:"
)

// GroupStore resolves a user's group.  *repository.UserRepo satisfies it.
type GroupStore interface {
	GroupOf(ctx context.Context, userID uint64) (string, error)
}

// Permissions answers capability questions for users based on their group.
// Admins inherit every moderator capability.
type Permissions struct {
	enforcer *casbin.SyncedEnforcer
	groups   GroupStore
}

// NewPermissions builds the in-memory policy set.
func NewPermissions(groups GroupStore) (*Permissions, error) {
	m, err := casbinmodel.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	policies := [][]string{
		{subjectPrefix + model.GroupModerator, ObjectOrders, ActionListAll},
	}
	for _, p := range policies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("add policy %v: %w", p, err)
		}
	}
	if _, err := e.AddGroupingPolicy(subjectPrefix+model.GroupAdmin, subjectPrefix+model.GroupModerator); err != nil {
		return nil, fmt.Errorf("add grouping policy: %w", err)
	}
	return &Permissions{enforcer: e, groups: groups}, nil
}

// GroupCan reports whether members of group may perform act on obj.
func (p *Permissions) GroupCan(group, obj, act string) (bool, error) {
	return p.enforcer.Enforce(subjectPrefix+strings.ToLower(group), obj, act)
}

// Require returns ErrPermissionDenied unless userID may perform act on obj.
// Unknown users are denied.
func (p *Permissions) Require(ctx context.Context, userID uint64, obj, act string) error {
	group, err := p.groups.GroupOf(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPermissionDenied
	}
	if err != nil {
		return fmt.Errorf("resolve group: %w", err)
	}
	ok, err := p.GroupCan(group, obj, act)
	if err != nil {
		return fmt.Errorf("enforce: %w", err)
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}
