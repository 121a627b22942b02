package gtfs

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFeedZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return reader
}

func TestParseFullFeed(t *testing.T) {
	reader := buildFeedZip(t, map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"1,Rithala,28.7209,77.1070\n" +
			"2,Rohini West,28.7147,77.1133\n",
		"routes.txt": "route_id,route_short_name,route_long_name\n" +
			"RED1,RED,RED_Rithala to Shaheed Sthal\n",
		"trips.txt": "trip_id,route_id,service_id\n" +
			"t1,RED1,WD\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"t1,06:00:00,06:00:30,1,1\n" +
			"t1,06:03:00,06:03:30,2,2\n",
	})

	result, err := NewParser(slog.New(slog.NewTextHandler(io.Discard, nil))).Parse(reader)
	require.NoError(t, err)

	require.Len(t, result.Stations, 2)
	st := result.Stations["1"]
	require.NotNil(t, st)
	assert.Equal(t, "Rithala", st.Name)
	assert.InDelta(t, 28.7209, st.Lat, 0.0001)

	require.Contains(t, result.Routes, "RED1")
	assert.Equal(t, "RED_Rithala to Shaheed Sthal", result.Routes["RED1"].LongName)

	assert.Equal(t, "RED1", result.TripRoutes["t1"])

	seqs := result.StopSequences["t1"]
	require.Len(t, seqs, 2)
	assert.Equal(t, "1", seqs[0].StopID)
	assert.Equal(t, 1, seqs[0].Sequence)
	assert.Equal(t, "2", seqs[1].StopID)
}

func TestParseToleratesMissingFiles(t *testing.T) {
	reader := buildFeedZip(t, map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"1,Rithala,28.7209,77.1070\n",
	})

	result, err := NewParser(slog.New(slog.NewTextHandler(io.Discard, nil))).Parse(reader)
	require.NoError(t, err)

	assert.Len(t, result.Stations, 1)
	assert.Empty(t, result.Routes)
	assert.Empty(t, result.TripRoutes)
	assert.Empty(t, result.StopSequences)
}

func TestParseSkipsRecordsWithoutIDs(t *testing.T) {
	reader := buildFeedZip(t, map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			",Nameless,28.70,77.10\n" +
			"2,Named,28.71,77.11\n",
	})

	result, err := NewParser(slog.New(slog.NewTextHandler(io.Discard, nil))).Parse(reader)
	require.NoError(t, err)

	assert.Len(t, result.Stations, 1)
	assert.Contains(t, result.Stations, "2")
}
