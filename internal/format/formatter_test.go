package format

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		opts   Options
		want   string
	}{
		{
			name:   "blank answer",
			answer: "   ",
			opts:   Options{Unified: true},
			want:   Empty,
		},
		{
			name:   "narrative request joins lines into sentences",
			answer: "Respuesta: El sistema usa Go.\nEs rápido y seguro para todos",
			opts:   Options{},
			want:   "El sistema usa Go. Es rápido y seguro para todos.",
		},
		{
			name:   "forced list with introducer",
			answer: "Los colores incluyen: rojo, verde y azul",
			opts:   Options{ForceBullets: true, Unified: true},
			want:   "Los colores incluyen:\n\n• Rojo\n\n• Verde y azul.",
		},
		{
			name:   "existing dash bullets keep their heading",
			answer: "Opciones disponibles:\n- rápido\n- seguro",
			opts:   Options{Unified: true},
			want:   "Opciones disponibles:\n\n• Rápido\n\n• Seguro.",
		},
		{
			name:   "numbered lines become bullets",
			answer: "Pasos:\n1. Instalar\n2. Configurar",
			opts:   Options{Unified: true},
			want:   "Pasos:\n\n• Instalar\n\n• Configurar.",
		},
		{
			name:   "stray asterisks are removed",
			answer: "El **sistema** es estable.",
			opts:   Options{Unified: true},
			want:   "El sistema es estable.",
		},
		{
			name:   "asterisk-only lines are dropped",
			answer: "La norma aplica a todos los contratos vigentes.\n**.",
			opts:   Options{Unified: true},
			want:   "La norma aplica a todos los contratos vigentes.",
		},
		{
			name:   "glued sentences are separated",
			answer: "El plazo vence hoy.Se puede prorrogar una vez por escrito.",
			opts:   Options{Unified: true},
			want:   "El plazo vence hoy. Se puede prorrogar una vez por escrito.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(context.Background(), tt.answer, tt.opts)
			if got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat_MixedContent(t *testing.T) {
	answer := "El informe describe el proyecto. La primera fase cubrió el análisis de requisitos con los equipos, " +
		"la segunda fase el diseño, la tercera la construcción, la cuarta las pruebas, " +
		"y la quinta el despliegue final en producción."

	got := Format(context.Background(), answer, Options{Unified: true})

	if !strings.HasPrefix(got, "El informe describe el proyecto.\n\n") {
		t.Errorf("Format() intro missing, got %q", got)
	}
	if !strings.Contains(got, "• La primera fase cubrió el análisis de requisitos con los equipos") {
		t.Errorf("Format() expected bullet for first clause, got %q", got)
	}
}

func TestFormat_ListTailBecomesNarrative(t *testing.T) {
	answer := "Los servicios incluyen: hosting, correo, En resumen la empresa ofrece soluciones completas para clientes pequeños"

	got := Format(context.Background(), answer, Options{ForceBullets: true, Unified: true})

	want := "Los servicios incluyen:\n\n• Hosting\n\n• Correo\n\nEn resumen la empresa ofrece soluciones completas para clientes pequeños."
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: nil},
		{name: "single", text: "Hola mundo", want: []string{"Hola mundo"}},
		{name: "terminators", text: "Uno. ¿Dos? ¡Tres! Cuatro", want: []string{"Uno.", "¿Dos?", "¡Tres!", "Cuatro"}},
		{name: "decimal is not a break", text: "Vale 3.5 euros. Fin.", want: []string{"Vale 3.5 euros.", "Fin."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitSentences(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitSentences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitBulletsAndTail(t *testing.T) {
	items := []string{
		"Rojo",
		"Verde",
		"Finalmente se usan colores neutros",
		"Gris",
	}
	bullets, tail := splitBulletsAndTail(items)

	if !reflect.DeepEqual(bullets, []string{"Rojo", "Verde"}) {
		t.Errorf("bullets = %q", bullets)
	}
	if !reflect.DeepEqual(tail, []string{"Finalmente se usan colores neutros", "Gris"}) {
		t.Errorf("tail = %q", tail)
	}
}

func TestJoinSingleNewlines(t *testing.T) {
	got := joinSingleNewlines("uno\ndos\n\ntres")
	if got != "uno dos\n\ntres" {
		t.Errorf("joinSingleNewlines() = %q", got)
	}
}

func TestRemoveTrailingConnectors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Se revisan los contratos, además.", want: "Se revisan los contratos"},
		{in: "Se cierra el ciclo por último", want: "Se cierra el ciclo"},
		{in: "Texto normal.", want: "Texto normal"},
	}
	for _, tt := range tests {
		if got := removeTrailingConnectors(tt.in); got != tt.want {
			t.Errorf("removeTrailingConnectors(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
