package readers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_UniversalFileReader_CanRead(t *testing.T) {
	r := &UniversalFileReader{}
	assert.True(t, r.CanRead("report.pdf"))
	assert.True(t, r.CanRead("letter.docx"))
	assert.True(t, r.CanRead("notes.odt"))
	assert.False(t, r.CanRead("notes.txt"))
	assert.False(t, r.CanRead("image.png"))
}
