package quotation

import "fmt"

// GenerateID generates a quotation ID from the current max number.
// The format is QUO-XXX where XXX is a zero-padded 3-digit number.
func GenerateID(currentMax int) string {
	return fmt.Sprintf("QUO-%03d", currentMax+1)
}

// ParseNumber extracts the numeric portion from a quotation ID.
// Returns -1 if the ID format is invalid.
func ParseNumber(id string) int {
	var num int
	_, err := fmt.Sscanf(id, "QUO-%d", &num)
	if err != nil {
		return -1
	}
	return num
}
