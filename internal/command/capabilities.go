package command

import (
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/allisson/missionhub/internal/errors"
)

// Router namespaces.
const (
	NamespaceMission   = "mission"
	NamespaceChecklist = "checklist"
)

// missionCapabilities is the command to capability map of the mission router.
var missionCapabilities = map[string]string{
	"mission.upsert":                "mission.write",
	"mission.delete":                "mission.write",
	"mission.get":                   "mission.read",
	"mission.list":                  "mission.read",
	"mission.team.upsert":           "mission.team.write",
	"mission.team.delete":           "mission.team.write",
	"mission.team.list":             "mission.read",
	"mission.team.member.upsert":    "mission.team.write",
	"mission.team.member.delete":    "mission.team.write",
	"mission.team.member.list":      "mission.read",
	"mission.team.member.skill.set": "mission.team.write",
	"mission.skill.upsert":          "mission.team.write",
	"mission.skill.list":            "mission.read",
	"mission.asset.upsert":          "mission.asset.write",
	"mission.asset.delete":          "mission.asset.write",
	"mission.asset.list":            "mission.read",
	"mission.assignment.upsert":     "mission.assignment.write",
	"mission.assignment.delete":     "mission.assignment.write",
	"mission.assignment.list":       "mission.read",
	"mission.marker.create":         "mission.content.write",
	"mission.marker.update":         "mission.content.write",
	"mission.marker.delete":         "mission.content.write",
	"mission.zone.create":           "mission.zone.write",
	"mission.zone.update":           "mission.zone.write",
	"mission.zone.delete":           "mission.zone.delete",
	"mission.topic.subscribe":       "mission.topic.subscribe",
	"mission.topic.unsubscribe":     "mission.topic.subscribe",
	"mission.events.list":           "mission.audit.read",
}

// checklistCapabilities is the command to capability map of the checklist router.
var checklistCapabilities = map[string]string{
	"checklist.template.create": "checklist.template.write",
	"checklist.template.update": "checklist.template.write",
	"checklist.template.delete": "checklist.template.write",
	"checklist.template.get":    "checklist.read",
	"checklist.template.list":   "checklist.read",
	"checklist.create.online":   "checklist.write",
	"checklist.create.offline":  "checklist.write",
	"checklist.import.csv":      "checklist.write",
	"checklist.update":          "checklist.write",
	"checklist.delete":          "checklist.write",
	"checklist.upload":          "checklist.write",
	"checklist.feed.publish":    "checklist.write",
	"checklist.task.row.add":    "checklist.write",
	"checklist.task.row.delete": "checklist.write",
	"checklist.task.status.set": "checklist.write",
	"checklist.task.cell.set":   "checklist.write",
	"checklist.get":             "checklist.read",
	"checklist.list":            "checklist.read",
}

// CapabilityMaps holds the capability map of each router.
type CapabilityMaps struct {
	Mission   map[string]string `yaml:"mission"`
	Checklist map[string]string `yaml:"checklist"`
}

// DefaultCapabilityMaps returns copies of the built-in maps.
func DefaultCapabilityMaps() CapabilityMaps {
	return CapabilityMaps{
		Mission:   maps.Clone(missionCapabilities),
		Checklist: maps.Clone(checklistCapabilities),
	}
}

// LoadCapabilityMaps returns the built-in maps with the entries of the YAML file at path
// laid over them. An empty path returns the defaults. An entry with an empty capability
// removes the command.
func LoadCapabilityMaps(path string) (CapabilityMaps, error) {
	result := DefaultCapabilityMaps()
	if path == "" {
		return result, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return CapabilityMaps{}, apperrors.Wrapf(err, "failed to read capability map %s", path)
	}

	var override CapabilityMaps
	if err := yaml.Unmarshal(data, &override); err != nil {
		return CapabilityMaps{}, apperrors.Wrapf(err, "failed to parse capability map %s", path)
	}

	merge(result.Mission, override.Mission)
	merge(result.Checklist, override.Checklist)
	return result, nil
}

func merge(dst, src map[string]string) {
	for commandType, capability := range src {
		if capability == "" {
			delete(dst, commandType)
			continue
		}
		dst[commandType] = capability
	}
}
