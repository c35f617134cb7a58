// Package reactive is the composition runtime the state bindings are built on.
//
// Components render inside an Owner scope, hooks keep stable identity
// through per-owner hook slots, signals subscribe the rendering component
// when read, and effects run after the render pass when their dependencies
// change.
//
// # Core Types
//
// Signal[T] is a reactive value container:
//
//	count := reactive.UseSignal(0)
//	value := count.Get()  // Read (subscribes the rendering component)
//	count.Set(5)          // Write (marks subscribers dirty)
//
// UseEffect runs a side effect after render when its dependencies change:
//
//	reactive.UseEffect(func() reactive.Cleanup {
//	    fmt.Println("key changed to", key)
//	    return nil
//	}, key)
//
// Context[T] passes values down the owner tree without threading them
// through every render function:
//
//	var Theme = reactive.CreateContext("light")
//
//	Theme.Provide("dark")
//	reactive.Mount(func() string { return Theme.Use() })
//
// # Roots
//
// A Root owns the top component and drives the render/effect loop:
//
//	root := reactive.NewRoot(App)
//	html := root.Render()
//	count.Set(1)
//	html = root.Flush()
//
// # Thread Safety
//
// The tracking context is per-goroutine. A root and everything it renders
// should be driven from one goroutine at a time; independent roots may run
// concurrently.
package reactive
