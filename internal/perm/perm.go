package perm

// 权限判定统一收口在这里：所有访问路径都消费同一个 Capability，
// 不允许各自散落 owner/editor/viewer 的判断逻辑。

type Role string

const (
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

type Collaborator struct {
	UserID uint64 `json:"userId"`
	Role   Role   `json:"role"`
}

type Capability struct {
	CanView bool `json:"canView"`
	CanEdit bool `json:"canEdit"`
}

// Resolve 由文档归属关系推出能力对：
// - owner 与 editor 协作者可读可写
// - viewer 协作者与公开文档只读
func Resolve(ownerID uint64, collaborators []Collaborator, isPublic bool, userID uint64) Capability {
	if userID == ownerID {
		return Capability{CanView: true, CanEdit: true}
	}
	for _, c := range collaborators {
		if c.UserID != userID {
			continue
		}
		if c.Role == RoleEditor {
			return Capability{CanView: true, CanEdit: true}
		}
		return Capability{CanView: true}
	}
	if isPublic {
		return Capability{CanView: true}
	}
	return Capability{}
}
