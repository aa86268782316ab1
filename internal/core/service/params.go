package service

// Positional argument accessors shared by service handlers. Parameters
// arrive as decoded JSON values and are type-checked here to produce a
// uniform fault.

// StringArg returns params[i] as a string.
func StringArg(params []any, i int, name string) (string, error) {
	v, ok := params[i].(string)
	if !ok {
		return "", InvalidArgument("parameter %q must be a string, got %T", name, params[i])
	}
	return v, nil
}

// BoolArg returns params[i] as a bool.
func BoolArg(params []any, i int, name string) (bool, error) {
	v, ok := params[i].(bool)
	if !ok {
		return false, InvalidArgument("parameter %q must be a boolean, got %T", name, params[i])
	}
	return v, nil
}
