package service

// CheckUpdatable is the field-update guard: it rejects the whole update if
// any proposed key falls outside the entity's static whitelist. The check is
// all-or-nothing and runs before anything is written, so a rejected update
// never partially applies.
func CheckUpdatable(allowed map[string]struct{}, updates map[string]any) error {
	for key := range updates {
		if _, ok := allowed[key]; !ok {
			return validationErr("Invalid update options")
		}
	}
	return nil
}
