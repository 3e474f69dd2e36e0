package domain

import "fmt"

// InvalidDepartmentError rejects a department key missing from the registry.
type InvalidDepartmentError struct {
	Key string
}

func (e *InvalidDepartmentError) Error() string {
	return fmt.Sprintf("invalid department key: %s", e.Key)
}
