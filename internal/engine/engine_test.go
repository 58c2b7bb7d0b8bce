package engine

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/registry"
	"github.com/conneroisu/gorsx/pkg/component"
	"github.com/conneroisu/gorsx/pkg/node"
)

func compile(t *testing.T, e *Engine, src string) *Template {
	t.Helper()
	tmpl, err := e.CompileString("test.rsx", src)
	require.NoError(t, err)
	return tmpl
}

func execute(t *testing.T, tmpl *Template, data map[string]any) string {
	t.Helper()
	out, err := tmpl.ExecuteHTML(data)
	require.NoError(t, err)
	return out
}

// card records how often it is rendered.
func card(calls *int) component.Component {
	return component.Simple("Card", component.NewSchema(
		component.Required("id"),
		component.WithDefault("variant", "plain"),
		component.Optional("title"),
	), func(props component.Props, children []node.Node) node.Node {
		*calls++
		return node.El("section",
			node.Attrs("id", props.String("id"), "class", "card card-"+props.String("variant")),
			node.El("h2", nil, props.String("title")),
			children,
		)
	})
}

func TestExecute_StaticMarkup(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "nested list",
			src:  "<ul>\n  <li>Item 1</li>\n  <li>Item 2</li>\n</ul>",
			want: "<ul><li>Item 1</li><li>Item 2</li></ul>",
		},
		{
			name: "void element",
			src:  `<img src="x.png" />`,
			want: `<img src="x.png"/>`,
		},
		{
			name: "inline svg",
			src:  `<svg viewBox="0 0 24 24"><g><path d="M0 0h24"/><circle r="3"/></g><clipPath id="c"/></svg>`,
			want: `<svg viewBox="0 0 24 24"><g><path d="M0 0h24"></path><circle r="3"></circle></g><clipPath id="c"></clipPath></svg>`,
		},
		{
			name: "fragment is transparent",
			src:  `<><b>a</b>b</>`,
			want: `<b>a</b>b`,
		},
		{
			name: "several roots",
			src:  `<p>one</p><p>two</p>`,
			want: `<p>one</p><p>two</p>`,
		},
		{
			name: "text is escaped",
			src:  `<p>{"<b>&\"'"}</p>`,
			want: `<p>&lt;b&gt;&amp;&quot;&#39;</p>`,
		},
		{
			name: "comment",
			src:  `<div><!-- note --></div>`,
			want: `<div><!-- note --></div>`,
		},
		{
			name: "valueless attribute",
			src:  `<input disabled />`,
			want: `<input disabled="disabled"/>`,
		},
	}

	e := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, execute(t, compile(t, e, tt.src), nil))
		})
	}
}

func TestExecute_Expressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{
			name: "embedded text",
			src:  `<p>Hello, {name}!</p>`,
			data: map[string]any{"name": "Ada"},
			want: `<p>Hello, Ada!</p>`,
		},
		{
			name: "undefined variable renders nothing",
			src:  `<p>{missing}</p>`,
			want: `<p></p>`,
		},
		{
			name: "booleans render nothing",
			src:  `<p>{flag}{1 + 1}</p>`,
			data: map[string]any{"flag": true},
			want: `<p>2</p>`,
		},
		{
			name: "list is flattened",
			src:  `<p>{items}</p>`,
			data: map[string]any{"items": []any{"a", []any{"b", "c"}, nil, "d"}},
			want: `<p>abcd</p>`,
		},
		{
			name: "interpolated attribute",
			src:  `<button class="btn-{n}">Go</button>`,
			data: map[string]any{"n": 42},
			want: `<button class="btn-42">Go</button>`,
		},
		{
			name: "conditional attribute on",
			src:  `<a class={active => "on {kind}"}>x</a>`,
			data: map[string]any{"active": true, "kind": "primary"},
			want: `<a class="on primary">x</a>`,
		},
		{
			name: "conditional attribute off",
			src:  `<a class={active => "on"} href="/">x</a>`,
			data: map[string]any{"active": false},
			want: `<a href="/">x</a>`,
		},
		{
			name: "dynamic boolean attribute",
			src:  `<input checked={done} required={todo} />`,
			data: map[string]any{"done": true, "todo": false},
			want: `<input checked="checked"/>`,
		},
		{
			name: "attribute value is escaped",
			src:  `<a title={t}>x</a>`,
			data: map[string]any{"t": `"quoted" & <tag>`},
			want: `<a title="&quot;quoted&quot; &amp; &lt;tag&gt;">x</a>`,
		},
		{
			name: "last write wins",
			src:  `<a id="one" href="/" id={second}>x</a>`,
			data: map[string]any{"second": "two"},
			want: `<a id="two" href="/">x</a>`,
		},
		{
			name: "raw html",
			src:  `<div>{raw(html)}</div>`,
			data: map[string]any{"html": "<em>hi</em>"},
			want: `<div><em>hi</em></div>`,
		},
		{
			name: "classes helper",
			src:  `<div class={classes("card", {"active": isOn, "muted": isOff})}></div>`,
			data: map[string]any{"isOn": true, "isOff": false},
			want: `<div class="card active"></div>`,
		},
		{
			name: "literal braces",
			src:  `<code>{{x}}</code>`,
			want: `<code>{x}</code>`,
		},
	}

	e := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, execute(t, compile(t, e, tt.src), tt.data))
		})
	}
}

func TestExecute_ControlFlow(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{
			name: "show true",
			src:  `<Show when={user != nil}><p>Hi {user.name}</p><Else><p>Sign in</p></Else></Show>`,
			data: map[string]any{"user": map[string]any{"name": "Ada"}},
			want: `<p>Hi Ada</p>`,
		},
		{
			name: "show false renders else",
			src:  `<Show when={user != nil}><p>Hi</p><Else><p>Sign in</p></Else></Show>`,
			want: `<p>Sign in</p>`,
		},
		{
			name: "show without else",
			src:  `<div><Show when={len(items) > 0}>some</Show></div>`,
			data: map[string]any{"items": []any{}},
			want: `<div></div>`,
		},
		{
			name: "for over slice",
			src:  `<ul><For each={items}><li>{item}</li></For></ul>`,
			data: map[string]any{"items": []string{"a", "b"}},
			want: `<ul><li>a</li><li>b</li></ul>`,
		},
		{
			name: "for with names and index",
			src:  `<ol><For each={users} as="u" index="i"><li id="u{i}">{u.name}</li></For></ol>`,
			data: map[string]any{"users": []any{map[string]any{"name": "x"}, map[string]any{"name": "y"}}},
			want: `<ol><li id="u0">x</li><li id="u1">y</li></ol>`,
		},
		{
			name: "for with item type",
			src:  `<ul><For each={items} as="s" type="string"><li>{s}</li></For></ul>`,
			data: map[string]any{"items": []string{"a", "b"}},
			want: `<ul><li>a</li><li>b</li></ul>`,
		},
		{
			name: "for over map is sorted",
			src:  `<dl><For each={m} index="k"><dt>{k}</dt><dd>{item}</dd></For></dl>`,
			data: map[string]any{"m": map[string]any{"b": 2, "a": 1}},
			want: `<dl><dt>a</dt><dd>1</dd><dt>b</dt><dd>2</dd></dl>`,
		},
		{
			name: "for over count",
			src:  `<p><For each={3}>{item}</For></p>`,
			want: `<p>012</p>`,
		},
		{
			name: "for over nil",
			src:  `<ul><For each={missing}><li/></For></ul>`,
			want: `<ul></ul>`,
		},
	}

	e := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, execute(t, compile(t, e, tt.src), tt.data))
		})
	}
}

func TestExecute_LoopVariableDoesNotLeak(t *testing.T) {
	tmpl := compile(t, New(nil), `<p><For each={[1, 2]}>{item}</For>{item}</p>`)

	assert.Equal(t, "<p>12outer</p>", execute(t, tmpl, map[string]any{"item": "outer"}))
}

func TestExecute_Components(t *testing.T) {
	calls := 0
	reg := registry.NewComponentRegistry().MustRegister("Card", card(&calls)).Freeze()
	e := New(reg)

	tmpl := compile(t, e, `<main><Card id={n} title="Hi"><p>body</p></Card></main>`)
	got := execute(t, tmpl, map[string]any{"n": 7})

	assert.Equal(t, `<main><section id="7" class="card card-plain"><h2>Hi</h2><p>body</p></section></main>`, got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"Card"}, tmpl.Dependencies())
}

func TestCompile_MissingPropNeverInvokes(t *testing.T) {
	calls := 0
	reg := registry.NewComponentRegistry().MustRegister("Card", card(&calls)).Freeze()

	_, err := New(reg).CompileString("page.rsx", "<main>\n  <Card title=\"x\" />\n</main>")

	require.Error(t, err)
	assert.True(t, errors.IsBindingError(err))
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodeMissingProp))
	assert.Contains(t, err.Error(), `"id"`)
	me, ok := errors.AsMarkupError(err)
	require.True(t, ok)
	assert.Equal(t, "page.rsx", me.FilePath)
	assert.Equal(t, 2, me.Line)
	assert.Equal(t, 0, calls)
}

func TestExecute_ConditionalPropCanBeMissing(t *testing.T) {
	calls := 0
	reg := registry.NewComponentRegistry().MustRegister("Card", card(&calls)).Freeze()
	tmpl := compile(t, New(reg), `<Card id={ok => "c1"} />`)

	_, err := tmpl.ExecuteHTML(map[string]any{"ok": false})
	require.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodeMissingProp))
	assert.Equal(t, 0, calls)

	out := execute(t, tmpl, map[string]any{"ok": true})
	assert.Contains(t, out, `id="c1"`)
	assert.Equal(t, 1, calls)
}

func TestCompile_Errors(t *testing.T) {
	reg := registry.NewComponentRegistry().MustRegister("Card", card(new(int))).Freeze()
	e := New(reg)

	tests := []struct {
		name string
		src  string
		code string
	}{
		{"mismatched tag", `<div></span>`, errors.ErrCodeMismatchedTag},
		{"unknown component", `<Widget />`, errors.ErrCodeUnknownComponent},
		{"unknown prop", `<Card id="1" colour="red" />`, errors.ErrCodeUnknownProp},
		{"children attribute", `<Card id="1" children="x" />`, errors.ErrCodeReservedName},
		{"invalid expression", `<p>{1 +}</p>`, errors.ErrCodeInvalidExpression},
		{"invalid attribute expression", `<p class={)}>x</p>`, errors.ErrCodeInvalidExpression},
		{"else outside show", `<Else>x</Else>`, errors.ErrCodeMalformedTag},
		{"show without when", `<Show>x</Show>`, errors.ErrCodeMalformedTag},
		{"show with literal when", `<Show when="yes">x</Show>`, errors.ErrCodeMalformedAttr},
		{"two else", `<Show when={a}><Else>1</Else><Else>2</Else></Show>`, errors.ErrCodeMalformedTag},
		{"else not last", `<Show when={a}><Else>1</Else><p>2</p></Show>`, errors.ErrCodeMalformedTag},
		{"else with attributes", `<Show when={a}><Else id="x">1</Else></Show>`, errors.ErrCodeMalformedAttr},
		{"for without each", `<For>x</For>`, errors.ErrCodeMalformedTag},
		{"for with bad name", `<For each={a} as="1x">x</For>`, errors.ErrCodeMalformedAttr},
		{"for with same names", `<For each={a} as="x" index="x">x</For>`, errors.ErrCodeMalformedAttr},
		{"for with unknown attribute", `<For each={a} step="2">x</For>`, errors.ErrCodeMalformedAttr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CompileString("bad.rsx", tt.src)
			require.Error(t, err)
			assert.True(t, errors.HasErrorCode(err, tt.code), "got %v", err)
		})
	}
}

func TestExecute_EvaluationError(t *testing.T) {
	tmpl := compile(t, New(nil), "<p>\n  {user.name.first}\n</p>")

	_, err := tmpl.ExecuteHTML(map[string]any{"user": map[string]any{"name": 3}})

	require.Error(t, err)
	assert.True(t, errors.IsEvaluationError(err))
	me, ok := errors.AsMarkupError(err)
	require.True(t, ok)
	assert.Equal(t, 2, me.Line)
	assert.Equal(t, "Test", me.Component)
}

func TestExecute_Sequences(t *testing.T) {
	tmpl := compile(t, New(nil), `<ul>{items}</ul>`)

	items := slices.Values([]node.Element{node.El("li", nil, "a"), node.El("li", nil, "b")})
	assert.Equal(t, `<ul><li>a</li><li>b</li></ul>`, execute(t, tmpl, map[string]any{"items": items}))

	_, err := tmpl.ExecuteHTML(map[string]any{"items": func() string { return "x" }})
	require.Error(t, err)
	assert.True(t, errors.IsEvaluationError(err))
	assert.Contains(t, err.Error(), "cannot flatten func() string")
}

func TestExecute_ForOverScalarFails(t *testing.T) {
	tmpl := compile(t, New(nil), `<For each={"abc"}>{item}</For>`)

	_, err := tmpl.ExecuteHTML(nil)
	require.Error(t, err)
	assert.True(t, errors.IsEvaluationError(err))
	assert.Contains(t, err.Error(), "cannot iterate over string")
}

func TestWithFunction(t *testing.T) {
	e := New(nil, WithFunction("shout", func(params ...any) (any, error) {
		return strings.ToUpper(params[0].(string)) + "!", nil
	}))

	assert.Equal(t, "<p>HI!</p>", execute(t, compile(t, e, `<p>{shout("hi")}</p>`), nil))
}

func TestFrontMatter(t *testing.T) {
	src := strings.Join([]string{
		"---",
		"name: Greeting",
		"description: Says hello",
		"props:",
		"  name:",
		"    required: true",
		"  punct:",
		"    default: \"!\"",
		"---",
		"<p>Hello, {name}{punct}</p>",
	}, "\n")

	tmpl, err := New(nil).Compile("views/hello.rsx", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "Greeting", tmpl.Name)
	assert.Equal(t, "Says hello", tmpl.Description)
	assert.Equal(t, []string{"name", "punct"}, tmpl.Schema().Names())
	assert.Len(t, tmpl.Hash, 8)
	assert.Equal(t, "<p>Hello, Ada!</p>", execute(t, tmpl, map[string]any{"name": "Ada"}))
}

func TestFrontMatter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"unknown key", "nmae: X", errors.ErrCodeConfigInvalid},
		{"reserved name", "name: Show", errors.ErrCodeReservedName},
		{"html name", "name: div", errors.ErrCodeReservedName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrontMatter("x.rsx", []byte(tt.header))
			require.Error(t, err)
			assert.True(t, errors.HasErrorCode(err, tt.code), "got %v", err)
		})
	}
}

func TestFrontMatter_ErrorLinesMatchFile(t *testing.T) {
	src := "---\nname: Broken\n---\n<div>\n</span>"

	_, err := New(nil).Compile("broken.rsx", []byte(src))

	require.Error(t, err)
	me, ok := errors.AsMarkupError(err)
	require.True(t, ok)
	assert.Equal(t, 5, me.Line)
}

func TestBuild(t *testing.T) {
	calls := 0
	reg := registry.NewComponentRegistry().MustRegister("Card", card(&calls))

	sources := []Source{
		{Path: "pages/home.rsx", Content: []byte(`<Layout title="Home"><Card id="c1">hi</Card></Layout>`)},
		{Path: "layout.rsx", Content: []byte("---\nprops: [title]\n---\n<html><head><title>{title}</title></head><body>{children}</body></html>")},
	}

	templates, err := Build(context.Background(), reg, sources)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "Layout", templates[0].Name)
	assert.Equal(t, "Home", templates[1].Name)
	assert.True(t, reg.Frozen())

	info, ok := reg.Get("Home")
	require.True(t, ok)
	assert.Equal(t, []string{"Card", "Layout"}, info.Dependencies)
	assert.Equal(t, "pages/home.rsx", info.FilePath)

	var buf bytes.Buffer
	require.NoError(t, templates[1].ExecuteTo(&buf, nil))
	assert.Equal(t,
		`<html><head><title>Home</title></head><body><section id="c1" class="card card-plain"><h2></h2>hi</section></body></html>`,
		buf.String())

	doc, err := html.Parse(&buf)
	require.NoError(t, err)
	assert.NotNil(t, doc)
}

func TestBuild_CollectsErrors(t *testing.T) {
	reg := registry.NewComponentRegistry()
	sources := []Source{
		{Path: "a.rsx", Content: []byte(`<div></span>`)},
		{Path: "b.rsx", Content: []byte(`<p>ok</p>`)},
		{Path: "c.rsx", Content: []byte(`<Widget />`)},
		{Path: "other/b.rsx", Content: []byte("---\nname: B\n---\n<p/>")},
	}

	templates, err := Build(context.Background(), reg, sources)

	require.Error(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "B", templates[0].Name)

	errs := errors.Split(err)
	require.Len(t, errs, 3)
	assert.True(t, errors.HasErrorCode(errs[0], errors.ErrCodeMismatchedTag))
	assert.True(t, errors.HasErrorCode(errs[1], errors.ErrCodeDuplicateName))
	assert.True(t, errors.HasErrorCode(errs[2], errors.ErrCodeUnknownComponent))
}

func TestBuild_DependentsOfFailedTemplatesAreSkipped(t *testing.T) {
	reg := registry.NewComponentRegistry()
	sources := []Source{
		{Path: "inner.rsx", Content: []byte(`<p>{1 +}</p>`)},
		{Path: "outer.rsx", Content: []byte(`<div><Inner /></div>`)},
	}

	templates, err := Build(context.Background(), reg, sources)

	require.Error(t, err)
	assert.Empty(t, templates)
	assert.Len(t, errors.Split(err), 1)
	_, ok := reg.Get("Outer")
	assert.False(t, ok)
}

func TestBuild_Cycle(t *testing.T) {
	reg := registry.NewComponentRegistry()
	sources := []Source{
		{Path: "a.rsx", Content: []byte(`<div><B /></div>`)},
		{Path: "b.rsx", Content: []byte(`<div><A /></div>`)},
		{Path: "c.rsx", Content: []byte(`<p>independent</p>`)},
		{Path: "d.rsx", Content: []byte(`<section><A /><C /></section>`)},
	}

	templates, err := Build(context.Background(), reg, sources)

	require.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodeDependencyCycle))
	require.Len(t, errors.Split(err), 1)
	assert.Contains(t, err.Error(), "A -> B -> A")
	me, ok := errors.AsMarkupError(errors.Split(err)[0])
	require.True(t, ok)
	assert.Equal(t, "a.rsx", me.FilePath)

	require.Len(t, templates, 1)
	assert.Equal(t, "C", templates[0].Name)
	assert.Equal(t, []string{"C"}, reg.Names())
	assert.True(t, reg.Frozen())
}

func TestTemplate_ConcurrentExecute(t *testing.T) {
	tmpl := compile(t, New(nil), `<ul><For each={items}><li>{item}</li></For></ul>`)

	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			out, _ := tmpl.ExecuteHTML(map[string]any{"items": []int{1, 2, 3}})
			done <- out
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, "<ul><li>1</li><li>2</li><li>3</li></ul>", <-done)
	}
}
