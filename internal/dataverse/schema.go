package dataverse

// Logical entity names
const (
	EntityTask       = "cr725_projecttasks"
	EntityAssignment = "cr725_resourceassignments"
	EntityUser       = "systemuser"
	EntityProject    = "cr725_bihub_ideas"
)

// Task fields
const (
	FieldTaskID          = "cr725_projecttasksid"
	FieldTaskName        = "cr725_name"
	FieldTaskNote        = "cr725_note"
	FieldTaskState       = "cr725_taskstate"
	FieldTaskStart       = "cr725_startdate"
	FieldTaskEnd         = "cr725_enddate"
	FieldTaskPercent     = "cr725_percentdone"
	FieldTaskProject     = "_cr725_relatedproject_value"
	FieldTaskCreatedOn   = "createdon"
	FieldTaskType        = "aubia_tasktype"
	FieldTaskCategory    = "aubia_category"
	FieldTaskProjectNav  = "cr725_RelatedProject"
	FieldTaskProjectBind = "cr725_RelatedProject@odata.bind"
)

// Resource assignment fields. Older rows carry the task in
// _cr725_projecttask_value instead of _cr725_taskref_value.
const (
	FieldAssignmentID      = "cr725_resourceassignmentsid"
	FieldAssignmentTask    = "_cr725_taskref_value"
	FieldAssignmentTaskOld = "_cr725_projecttask_value"
	FieldAssignmentUser    = "_cr725_resource_value"
)

// System user fields
const (
	FieldUserID       = "systemuserid"
	FieldUserFullName = "fullname"
	FieldUserFirst    = "firstname"
	FieldUserLast     = "lastname"
	FieldUserEmail    = "internalemailaddress"
	FieldUserDomain   = "domainname"
	FieldUserDisabled = "isdisabled"
)

// Project fields
const (
	FieldProjectID         = "cr725_bihub_ideasid"
	FieldProjectTitle      = "cr725_title"
	FieldProjectNumber     = "cr725_id"
	FieldProjectDepartment = "cr725_department"
	FieldProjectSite       = "cr725_site"
	FieldProjectStatus     = "cr725_currentprojectstatus"
	FieldProjectOwner      = "_cr725_projectowner_value"
	FieldProjectClosed     = "cr725_projectclosed"
	FieldProjectFAP        = "cr725_fullassetpotentialinitative"
	FieldStateCode         = "statecode"
)

// FormattedValueSuffix marks the annotation carrying a column's display text
const FormattedValueSuffix = "@OData.Community.Display.V1.FormattedValue"

// Formatted returns the annotation key for field's display text
func Formatted(field string) string { return field + FormattedValueSuffix }

// Web API collection names for each logical entity
var entitySets = map[string]string{
	EntityTask:       "cr725_projecttaskses",
	EntityAssignment: "cr725_resourceassignmentses",
	EntityUser:       "systemusers",
	EntityProject:    "cr725_bihub_ideases",
}

var primaryKeys = map[string]string{
	EntityTask:       FieldTaskID,
	EntityAssignment: FieldAssignmentID,
	EntityUser:       FieldUserID,
	EntityProject:    FieldProjectID,
}

// EntitySet returns the Web API collection name for a logical entity name
func EntitySet(entity string) string {
	if s, ok := entitySets[entity]; ok {
		return s
	}
	return entity + "s"
}

// PrimaryKey returns the id attribute of a logical entity
func PrimaryKey(entity string) string {
	if k, ok := primaryKeys[entity]; ok {
		return k
	}
	return entity + "id"
}
