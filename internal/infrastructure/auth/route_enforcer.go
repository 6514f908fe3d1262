package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/you/verifysvc/domain"
)

// routeModel matches a session stage against path patterns and HTTP
// methods. Policies are seeded from config at startup.
const routeModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// NewRouteEnforcer builds the Casbin enforcer backing the session guard.
func NewRouteEnforcer() (domain.RouteEnforcer, error) {
	m, err := model.NewModelFromString(routeModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse route model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create route enforcer: %w", err)
	}
	return enforcer, nil
}
