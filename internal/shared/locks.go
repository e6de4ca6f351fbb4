package shared

import "fmt"

// ItemLockKey builds redis keys serialising stock movements per item.
func ItemLockKey(itemID int64) string {
	return fmt.Sprintf("inventory:item:%d:lock", itemID)
}
