// Package wasm provides structural WebAssembly binary parsing and encoding.
//
// The decoder covers the core binary format sections a host needs in order to
// describe a module before handing it to an engine: types, imports,
// functions, tables, memories, globals, exports, the start function and code
// bodies. Element and data sections are carried as raw payloads.
//
// Only numeric function types are accepted. SIMD and reference value types,
// GC type forms, exception-handling tags and multi-value results are rejected
// with ErrUnsupported.
//
// # Parsing
//
//	data, _ := os.ReadFile("module.wasm")
//	module, err := wasm.ParseModuleValidate(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Encoding
//
//	m := &wasm.Module{}
//	ft := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}})
//	m.Funcs = append(m.Funcs, ft)
//	m.Code = append(m.Code, wasm.FuncBody{Code: wasm.NewCode().LocalGet(0).End().Bytes()})
//	m.Exports = append(m.Exports, wasm.Export{Name: "id", Kind: wasm.KindFunc, Idx: 0})
//	encoded := m.Encode()
package wasm
