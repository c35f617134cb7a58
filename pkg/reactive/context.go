package reactive

// Context provides dependency injection through the owner tree.
// Create one with CreateContext, provide a value on an owner, and read it
// from any descendant with Use.
//
//	var ThemeContext = reactive.CreateContext("light")
//
//	func App() string {
//	    ThemeContext.Provide("dark")
//	    return reactive.Mount(Button)
//	}
//
//	func Button() string {
//	    return "btn-" + ThemeContext.Use()
//	}
type Context[T any] struct {
	key          any
	defaultValue T
}

// contextKey wraps Context to create a unique key type.
type contextKey[T any] struct {
	ctx *Context[T]
}

// CreateContext creates a new context. defaultValue is returned by Use when
// no owner in the chain provides a value.
func CreateContext[T any](defaultValue T) *Context[T] {
	ctx := &Context[T]{defaultValue: defaultValue}
	ctx.key = contextKey[T]{ctx: ctx}
	return ctx
}

// Provide stores value on the current owner, making it visible to the owner
// and all of its descendants.
func (c *Context[T]) Provide(value T) {
	if owner := getCurrentOwner(); owner != nil {
		owner.SetValue(c.key, value)
	}
}

// ProvideTo stores value on owner. Roots use it to seed collaborators such
// as storage or history before the first render.
func (c *Context[T]) ProvideTo(owner *Owner, value T) {
	if owner != nil {
		owner.SetValue(c.key, value)
	}
}

// Use retrieves the value from the nearest providing owner, or the default.
func (c *Context[T]) Use() T {
	TrackHook(HookContext)
	if v, ok := c.Lookup(); ok {
		return v
	}
	return c.defaultValue
}

// Lookup reports the provided value and whether any owner provides one.
// It is not a hook and may be called conditionally.
func (c *Context[T]) Lookup() (T, bool) {
	var zero T
	owner := getCurrentOwner()
	if owner == nil {
		return zero, false
	}
	value := owner.GetValue(c.key)
	if value == nil {
		return zero, false
	}
	typed, ok := value.(T)
	return typed, ok
}

// Default returns the default value for this context.
func (c *Context[T]) Default() T {
	return c.defaultValue
}
