/*
Package compiler turns algorithmic language programs into RAM machine code.

Process of compilation

Program Text ->
	preprocess ($ INCLURE) ->
Expanded Text + line origins ->
	parse ->
Abstract Syntax Tree (ast) ->
	analyze pass 1 (symbols, types, codelen) ->
	analyze pass 2 (addresses, warnings) ->
Annotated AST + Symbol Table ->
	generate ->
RAM Program (asm) ->
	encode ->
Assembly Text

Assembly Text ->
	asm.Parse ->
RAM Program ->
	ram.Run ->
Output

*/
package compiler
