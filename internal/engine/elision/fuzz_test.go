package elision

import (
	"testing"

	"elision/internal/engine/parser"
)

func FuzzAnalyze(f *testing.F) {
	f.Add([]byte(`import D, { A, type B, C as See } from "./m";
import * as ns from "./ns";
import type { T } from "./t";
export { R, type S } from "./re";
let x: A = D(See);
let y: ns.Inner<T>;
`))
	f.Add([]byte(`import { A } from "./a"; export type { A }; export { A };`))
	f.Add([]byte(`import { from "./broken"`))

	loader, err := parser.NewGrammarLoader()
	if err != nil {
		f.Fatal(err)
	}
	p := parser.NewParser(loader)
	analyzer := New(DefaultOptions())

	f.Fuzz(func(t *testing.T, data []byte) {
		src, err := p.Parse("fuzz.ts", data)
		if err != nil {
			return
		}
		defer src.Close()

		res, err := analyzer.Analyze(src, nil)
		if err != nil {
			return
		}
		if len(res.Verdicts) != len(res.Declarations) {
			t.Fatalf("%d verdicts for %d declarations", len(res.Verdicts), len(res.Declarations))
		}
		for i, v := range res.Verdicts {
			if v.Kind == RetainSubset && len(v.Retained) == 0 {
				t.Fatalf("declaration %d: empty retain-subset", i)
			}
			if v.Kind != RetainWhole && res.Declarations[i].Kind == DeclSideEffect {
				t.Fatalf("side-effect import %d was not retained", i)
			}
		}
	})
}
