package dsl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// exprLexer tokenizes predicate and projection text.
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Param", Pattern: `@[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*`},
	{Name: "Operator", Pattern: `==|!=|<=|>=|&&|\|\||[-+*/%<>!()\[\],:]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Raw parse tree. Precedence climbs from orExpr (loosest) to primary.

type orExpr struct {
	Pos   lexer.Position
	Terms []*andExpr `@@ ( "||" @@ )*`
}

type andExpr struct {
	Terms []*notExpr `@@ ( "&&" @@ )*`
}

type notExpr struct {
	Not     *notExpr `  "!" @@`
	Compare *compare `| @@`
}

type compare struct {
	Left  *sum   `@@`
	Op    string `( @( "==" | "!=" | "<=" | ">=" | "<" | ">" | "in" | "like" )`
	Right *sum   `  @@ )?`
}

type sum struct {
	Left *product `@@`
	Rest []*sumOp `@@*`
}

type sumOp struct {
	Op    string   `@( "+" | "-" )`
	Right *product `@@`
}

type product struct {
	Left *unary       `@@`
	Rest []*productOp `@@*`
}

type productOp struct {
	Op    string `@( "*" | "/" | "%" )`
	Right *unary `@@`
}

type unary struct {
	Neg   *unary   `  "-" @@`
	Value *primary `| @@`
}

type primary struct {
	Pos    lexer.Position
	Number *string `  @Number`
	String *string `| @String`
	Bool   *string `| @( "true" | "false" )`
	Null   bool    `| @"null"`
	Param  *string `| @Param`
	Call   *call   `| @@`
	Ref    *string `| @Ident`
	List   *list   `| @@`
	Group  *orExpr `| "(" @@ ")"`
}

type call struct {
	Name string    `@Ident "("`
	Args []*orExpr `( @@ ( "," @@ )* )? ")"`
}

type list struct {
	Open  string    `@"["`
	Items []*orExpr `( @@ ( "," @@ )* )? "]"`
}

type shape struct {
	Fields []*field `@@ ( "," @@ )*`
}

type field struct {
	Pos  lexer.Position
	Name string  `( @Ident ":" )?`
	Expr *orExpr `@@`
}

var options = []participle.Option{
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(4),
}

var (
	exprParser  = participle.MustBuild[orExpr](options...)
	shapeParser = participle.MustBuild[shape](options...)
)
