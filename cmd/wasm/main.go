//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/engine"
	"github.com/draftcore/draftcore/backend-go/internal/geometry"
	"github.com/draftcore/draftcore/backend-go/internal/viewport"
)

var eng *engine.Engine

func main() {
	eng = engine.New(document.NewSketch(), engine.DefaultOptions())

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("loadSketch", js.FuncOf(loadSketch))
	api.Set("loadSampleSketch", js.FuncOf(loadSampleSketch))
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("setDrawMode", js.FuncOf(setDrawMode))
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("resolveSurface", js.FuncOf(resolveSurface))
	api.Set("finishSelection", js.FuncOf(finishSelection))
	api.Set("setSelection", js.FuncOf(setSelection))
	api.Set("deleteSelected", js.FuncOf(deleteSelected))

	// --- Queries (frontend ← engine) ---
	api.Set("render", js.FuncOf(render))
	api.Set("drawCommands", js.FuncOf(drawCommands))
	api.Set("pendingRequests", js.FuncOf(pendingRequests))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getSketch", js.FuncOf(getSketch))

	js.Global().Set("draftEngine", api)
	js.Global().Set("draftWasmReady", js.ValueOf(true))

	select {}
}

func errorResult(msg string) any {
	return js.ValueOf(map[string]any{"error": msg})
}

func jsonResult(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func loadSketch(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorResult("missing sketch JSON")
	}
	s, err := document.Decode([]byte(args[0].String()))
	if err != nil {
		return errorResult(err.Error())
	}
	eng.Replace(s)
	return js.ValueOf(map[string]any{"ok": true})
}

func loadSampleSketch(this js.Value, args []js.Value) any {
	eng.Replace(document.NewSampleSketch())
	return js.ValueOf(map[string]any{"ok": true})
}

func setTool(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorResult("missing tool")
	}
	t, err := engine.ParseTool(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	eng.SetTool(t)
	return nil
}

func setDrawMode(this js.Value, args []js.Value) any {
	if len(args) < 1 || !eng.SetDrawMode(document.DrawMode(args[0].String())) {
		return errorResult("draw mode must be modeling or calculation")
	}
	return nil
}

// pointerArgs reads (clientX, clientY, targetJSON?).
func pointerArgs(args []js.Value) (geometry.Point, *document.EntityRef, bool) {
	if len(args) < 2 {
		return geometry.Point{}, nil, false
	}
	p := geometry.Pt(args[0].Float(), args[1].Float())
	if len(args) < 3 || args[2].Type() != js.TypeString {
		return p, nil, true
	}
	var ref document.EntityRef
	if err := json.Unmarshal([]byte(args[2].String()), &ref); err != nil {
		return p, nil, true
	}
	return p, &ref, true
}

// pointerDown returns the request id the frontend answers with
// resolveSurface once it has measured the drawing element.
func pointerDown(this js.Value, args []js.Value) any {
	p, target, ok := pointerArgs(args)
	if !ok {
		return errorResult("missing pointer position")
	}
	return js.ValueOf(float64(eng.SubmitPointerDown(p, target)))
}

func pointerMove(this js.Value, args []js.Value) any {
	p, target, ok := pointerArgs(args)
	if !ok {
		return errorResult("missing pointer position")
	}
	return js.ValueOf(float64(eng.SubmitPointerMove(p, target)))
}

func pointerUp(this js.Value, args []js.Value) any {
	eng.PointerUp()
	return nil
}

// resolveSurface(request, left, top, width, height) returns the effect JSON,
// or null when the response was stale.
func resolveSurface(this js.Value, args []js.Value) any {
	if len(args) < 5 {
		return errorResult("resolveSurface needs request, left, top, width, height")
	}
	s := viewport.Surface{
		Left:   args[1].Float(),
		Top:    args[2].Float(),
		Width:  args[3].Float(),
		Height: args[4].Float(),
	}
	eff, ok := eng.ResolveSurface(uint64(args[0].Int()), s)
	if !ok {
		return js.Null()
	}
	return jsonResult(eff)
}

func finishSelection(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.FinishSelection())
}

func setSelection(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		eng.ClearSelection()
		return js.ValueOf(true)
	}
	var ref document.EntityRef
	if err := json.Unmarshal([]byte(args[0].String()), &ref); err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(eng.Select(ref))
}

func deleteSelected(this js.Value, args []js.Value) any {
	return jsonResult(eng.DeleteSelected())
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	return jsonResult(eng.Snapshot())
}

// drawCommands(width, height) compiles draw commands for an element of that
// size without waiting for a surface response.
func drawCommands(this js.Value, args []js.Value) any {
	var w, h float64
	if len(args) >= 2 {
		w, h = args[0].Float(), args[1].Float()
	}
	out, err := engine.DrawCommandsToJSON(eng.DrawCommands(w, h))
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(out)
}

func pendingRequests(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.PendingRequests())
}

// hitTest(x, y, tolerance) takes logical coordinates.
func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.Null()
	}
	tol := 5.0
	if len(args) > 2 {
		tol = args[2].Float()
	}
	ref, ok := eng.HitTest(geometry.Pt(args[0].Float(), args[1].Float()), tol)
	if !ok {
		return js.Null()
	}
	return jsonResult(ref)
}

func getSketch(this js.Value, args []js.Value) any {
	data, err := document.Encode(eng.Sketch())
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(string(data))
}
