package auth

// Object types subject to authorization.
const (
	ObjectProject = "project"
	ObjectTask    = "task"
	ObjectUser    = "user"
)

// Actions on objects. Ownership-scoped variants carry the OwnSuffix and are
// granted only when the resource's owner id matches the acting principal.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionList   = "list"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionAssign = "assign"
	ActionManage = "manage"
)

// OwnSuffix marks a policy row as ownership-scoped.
const OwnSuffix = "@own"
