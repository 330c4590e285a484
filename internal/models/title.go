package models

import "fmt"

// titlePrefix is the register prefix every simulated title number shares.
const titlePrefix = "ABC123"

// TitleNumber formats the land title number of a record, e.g. "ABC123/07".
func TitleNumber(r Record) string {
	return fmt.Sprintf("%s/%02d", titlePrefix, r.Index)
}
