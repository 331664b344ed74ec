package types

import (
	"fmt"
	"strings"
)

// ItemType tags a test item with its level in the hierarchy.
type ItemType string

// Item types. Features are reported as STORY, scenarios as SCENARIO.
const (
	ItemTypeSuite        ItemType = "SUITE"
	ItemTypeStory        ItemType = "STORY"
	ItemTypeTest         ItemType = "TEST"
	ItemTypeScenario     ItemType = "SCENARIO"
	ItemTypeStep         ItemType = "STEP"
	ItemTypeBeforeClass  ItemType = "BEFORE_CLASS"
	ItemTypeAfterClass   ItemType = "AFTER_CLASS"
	ItemTypeBeforeMethod ItemType = "BEFORE_METHOD"
	ItemTypeAfterMethod  ItemType = "AFTER_METHOD"
)

// ParseItemType parses an item type case-insensitively.
func ParseItemType(s string) (ItemType, error) {
	switch t := ItemType(strings.ToUpper(strings.TrimSpace(s))); t {
	case ItemTypeSuite, ItemTypeStory, ItemTypeTest, ItemTypeScenario, ItemTypeStep,
		ItemTypeBeforeClass, ItemTypeAfterClass, ItemTypeBeforeMethod, ItemTypeAfterMethod:
		return t, nil
	default:
		return "", fmt.Errorf("invalid item type: %q", s)
	}
}
