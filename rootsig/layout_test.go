package rootsig

import "testing"

func tableParam(visibility Visibility, ranges ...DescriptorRange) RootParameter {
	return RootParameter{Kind: ParameterTable, Visibility: visibility, Table: ranges}
}

func TestLayoutBindingDoubling(t *testing.T) {
	desc := Desc{Parameters: []RootParameter{
		tableParam(VisibilityAll,
			DescriptorRange{Kind: RangeSRV, Count: 2, BaseRegister: 0},
			DescriptorRange{Kind: RangeCBV, Count: 1, BaseRegister: 0},
		),
	}}
	layout, err := New(&desc, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Two SRVs doubled (buffer + image) plus one CBV.
	entries := layout.Entries()
	if len(entries) != 5 {
		t.Fatalf("entry count = %d, want 5", len(entries))
	}

	buffer, ok := layout.Binding(DescriptorSRV, 1, true)
	if !ok || !buffer.IsBuffer {
		t.Fatalf("missing buffer binding for t1")
	}
	image, ok := layout.Binding(DescriptorSRV, 1, false)
	if !ok || image.IsBuffer {
		t.Fatalf("missing image binding for t1")
	}
	if image.Binding != buffer.Binding+1 {
		t.Errorf("buffer/image variants not adjacent: %d, %d", buffer.Binding, image.Binding)
	}

	cbv, ok := layout.Binding(DescriptorCBV, 0, true)
	if !ok || !cbv.IsBuffer {
		t.Fatalf("missing CBV binding")
	}

	params := layout.Parameters()
	if len(params) != 1 || params[0].Kind != ParameterTable || params[0].Binding != 0 {
		t.Errorf("parameter echo = %+v", params)
	}
}

func TestLayoutPushDescriptorSets(t *testing.T) {
	desc := Desc{Parameters: []RootParameter{
		{Kind: ParameterCBV, Descriptor: RootDescriptorDesc{Register: 0}},
		tableParam(VisibilityAll, DescriptorRange{Kind: RangeSRV, Count: 1, BaseRegister: 0}),
	}}

	pushed, err := New(&desc, Options{UsePushDescriptors: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if pushed.PushSet() != 0 {
		t.Errorf("push set = %d, want 0", pushed.PushSet())
	}
	cbv, _ := pushed.Binding(DescriptorCBV, 0, true)
	if cbv.Set != 0 {
		t.Errorf("root CBV landed in set %d, want the push set", cbv.Set)
	}
	srv, _ := pushed.Binding(DescriptorSRV, 0, false)
	if srv.Set != 1 {
		t.Errorf("table SRV landed in set %d, want 1", srv.Set)
	}

	merged, err := New(&desc, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if merged.PushSet() != -1 {
		t.Errorf("unexpected push set %d", merged.PushSet())
	}
	cbv, _ = merged.Binding(DescriptorCBV, 0, true)
	srv, _ = merged.Binding(DescriptorSRV, 0, false)
	if cbv.Set != 0 || srv.Set != 0 {
		t.Errorf("root and table descriptors did not merge into set 0")
	}
}

func TestLayoutPushConstantCollapse(t *testing.T) {
	desc := Desc{Parameters: []RootParameter{
		{Kind: ParameterConstants, Visibility: VisibilityVertex,
			Constants: RootConstantsDesc{Register: 0, Count: 4}},
		{Kind: ParameterConstants, Visibility: VisibilityAll,
			Constants: RootConstantsDesc{Register: 1, Count: 2}},
	}}
	layout, err := New(&desc, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ranges := layout.PushConstantRanges()
	if len(ranges) != 1 {
		t.Fatalf("range count = %d, want 1 (collapsed)", len(ranges))
	}
	if ranges[0].Stages != StageAll || ranges[0].Size != 24 {
		t.Errorf("collapsed range = %+v", ranges[0])
	}

	constants := layout.RootConstants()
	if len(constants) != 2 {
		t.Fatalf("root constant count = %d", len(constants))
	}
	for _, rc := range constants {
		if rc.Stages != StageAll {
			t.Errorf("constant %+v kept a per-stage mask after collapse", rc)
		}
	}
}

func TestLayoutPushConstantPerStage(t *testing.T) {
	desc := Desc{Parameters: []RootParameter{
		{Kind: ParameterConstants, Visibility: VisibilityVertex,
			Constants: RootConstantsDesc{Register: 0, Count: 4}},
		{Kind: ParameterConstants, Visibility: VisibilityPixel,
			Constants: RootConstantsDesc{Register: 1, Count: 2}},
	}}
	layout, err := New(&desc, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ranges := layout.PushConstantRanges()
	if len(ranges) != 2 {
		t.Fatalf("range count = %d, want 2", len(ranges))
	}
	if ranges[0].Stages != StageVertex || ranges[0].Offset != 0 || ranges[0].Size != 16 {
		t.Errorf("vertex range = %+v", ranges[0])
	}
	if ranges[1].Stages != StageFragment || ranges[1].Offset != 16 || ranges[1].Size != 8 {
		t.Errorf("pixel range = %+v", ranges[1])
	}

	rc, ok := layout.PushConstant(1)
	if !ok || rc.Offset != 16 {
		t.Errorf("cb1 placement = %+v, %v", rc, ok)
	}
}

func TestLayoutCost(t *testing.T) {
	// 31 root descriptors cost 62; a 2-constant parameter brings the
	// total to the exact 64 ceiling.
	var params []RootParameter
	for i := 0; i < 31; i++ {
		params = append(params, RootParameter{Kind: ParameterCBV,
			Descriptor: RootDescriptorDesc{Register: uint32(i)}})
	}
	params = append(params, RootParameter{Kind: ParameterConstants,
		Constants: RootConstantsDesc{Register: 31, Count: 2}})
	if _, err := New(&Desc{Parameters: params}, Options{}); err != nil {
		t.Errorf("cost-64 signature rejected: %v", err)
	}

	params[len(params)-1].Constants.Count = 3
	_, err := New(&Desc{Parameters: params}, Options{})
	e, ok := err.(*Error)
	if !ok || e.Kind != ErrCapacityExceeded {
		t.Errorf("expected capacity exceeded, got %v", err)
	}
}

func TestLayoutRejectsUnsupportedFeatures(t *testing.T) {
	tests := map[string]Desc{
		"register-space": {Parameters: []RootParameter{
			tableParam(VisibilityAll, DescriptorRange{Kind: RangeSRV, Count: 1, RegisterSpace: 1}),
		}},
		"unbounded-range": {Parameters: []RootParameter{
			tableParam(VisibilityAll, DescriptorRange{Kind: RangeSRV, Count: UnboundedCount}),
		}},
		"bad-range-kind": {Parameters: []RootParameter{
			tableParam(VisibilityAll, DescriptorRange{Kind: RangeKind(9), Count: 1}),
		}},
	}
	for name, desc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(&desc, Options{})
			e, ok := err.(*Error)
			if !ok || e.Kind != ErrUnsupported {
				t.Errorf("expected unsupported, got %v", err)
			}
		})
	}

	if _, err := New(nil, Options{}); err == nil {
		t.Errorf("nil description accepted")
	}
}

func TestLayoutStaticAndDefaultSamplers(t *testing.T) {
	desc := Desc{
		Parameters: []RootParameter{
			tableParam(VisibilityPixel, DescriptorRange{Kind: RangeSRV, Count: 1}),
		},
		StaticSamplers: []StaticSamplerDesc{
			{Filter: FilterLinear, AddressU: AddressWrap, AddressV: AddressClamp,
				AddressW: AddressBorder, Register: 0, Visibility: VisibilityPixel},
		},
	}
	layout, err := New(&desc, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	samplers := layout.Samplers()
	if len(samplers) != 2 {
		t.Fatalf("sampler count = %d, want static + default", len(samplers))
	}

	static := samplers[0]
	if static.MagFilter != FilterModeLinear || static.MipmapMode != MipmapLinear {
		t.Errorf("linear filter mistranslated: %+v", static)
	}
	if static.AddressU != WrapRepeat || static.AddressV != WrapClampToEdge || static.AddressW != WrapClampToBorder {
		t.Errorf("address modes mistranslated: %+v", static)
	}
	if static.Stages != StageFragment {
		t.Errorf("static sampler stages = %#x", static.Stages)
	}

	def, ok := layout.DefaultSampler()
	if !ok {
		t.Fatalf("missing default sampler")
	}
	if def.MagFilter != FilterNearest || def.AddressU != WrapClampToEdge || def.Stages != StageAll {
		t.Errorf("default sampler = %+v", def)
	}

	// No SRVs means no default sampler.
	noSRV := Desc{Parameters: []RootParameter{
		tableParam(VisibilityAll, DescriptorRange{Kind: RangeCBV, Count: 1}),
	}}
	layout, err = New(&noSRV, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := layout.DefaultSampler(); ok {
		t.Errorf("default sampler appended without any SRV")
	}
}

func TestLayoutPoolSizes(t *testing.T) {
	desc := Desc{Parameters: []RootParameter{
		tableParam(VisibilityAll,
			DescriptorRange{Kind: RangeSRV, Count: 2},
			DescriptorRange{Kind: RangeUAV, Count: 1, BaseRegister: 0},
			DescriptorRange{Kind: RangeCBV, Count: 3},
		),
	}}
	layout, err := New(&desc, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	want := map[DescriptorType]uint32{
		TypeUniformBuffer:      3,
		TypeUniformTexelBuffer: 2,
		TypeSampledImage:       2,
		TypeStorageTexelBuffer: 1,
		TypeStorageImage:       1,
		TypeSampler:            1, // the default sampler
	}
	got := map[DescriptorType]uint32{}
	for _, p := range layout.PoolSizes() {
		got[p.Type] = p.Count
	}
	for typ, count := range want {
		if got[typ] != count {
			t.Errorf("pool size for type %d = %d, want %d", typ, got[typ], count)
		}
	}
}

func TestLayoutUAVCounterBindings(t *testing.T) {
	desc := Desc{Parameters: []RootParameter{
		tableParam(VisibilityAll, DescriptorRange{Kind: RangeUAV, Count: 2, BaseRegister: 1}),
	}}
	layout, err := New(&desc, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	first, ok := layout.CounterBinding(1)
	if !ok {
		t.Fatalf("u1 has no counter binding")
	}
	second, ok := layout.CounterBinding(2)
	if !ok {
		t.Fatalf("u2 has no counter binding")
	}
	if first.Set != second.Set {
		t.Errorf("counters split across sets %d and %d", first.Set, second.Set)
	}
	if first.Set <= layout.MainSet() {
		t.Errorf("counter set %d does not follow the main set %d", first.Set, layout.MainSet())
	}
	if _, ok := layout.CounterBinding(0); ok {
		t.Errorf("phantom counter binding for u0")
	}
}
