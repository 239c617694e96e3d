package importer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bidtrack/internal/importer"
	"bidtrack/models"
)

func TestMapRegion(t *testing.T) {
	r := importer.MapRegion("WAF")
	require.NotNil(t, r)
	require.Equal(t, "AMME", *r)

	// Already-canonical values pass through.
	r = importer.MapRegion("Europe")
	require.NotNil(t, r)
	require.Equal(t, "Europe", *r)

	require.Nil(t, importer.MapRegion(""))
	require.Nil(t, importer.MapRegion("Atlantis"))
}

func TestMapCountry(t *testing.T) {
	require.Equal(t, "BR", importer.MapCountry("Brazil"))
	require.Equal(t, "GB", importer.MapCountry("UK"))
	require.Equal(t, "US", importer.MapCountry("Worldwide"))
	require.Equal(t, "US", importer.MapCountry("Narnia"))
	require.Equal(t, "US", importer.MapCountry(""))
}

func TestCountryForRegion(t *testing.T) {
	amme := "AMME"
	require.Equal(t, "NG", importer.CountryForRegion(&amme))
	require.Equal(t, "US", importer.CountryForRegion(nil))
}

func TestMapBidType(t *testing.T) {
	require.Equal(t, models.BidTypeDR, importer.MapBidType("DIR"))
	require.Equal(t, models.BidTypeRFP, importer.MapBidType("rfp"))
	require.Equal(t, models.BidTypeBQ, importer.MapBidType("something else"))
}

func TestMapStatus(t *testing.T) {
	require.Equal(t, models.StatusWon, importer.MapStatus("Award"))
	require.Equal(t, models.StatusSubmitted, importer.MapStatus("Submitted-Complete"))
	require.Equal(t, models.StatusCancelled, importer.MapStatus("No Sale"))
	require.Equal(t, models.StatusOngoing, importer.MapStatus("anything unmapped"))
}

func TestMapOBNTechnique(t *testing.T) {
	v := importer.MapOBNTechnique("ROV-NOAR")
	require.NotNil(t, v)
	require.Equal(t, "ROV", *v)

	require.Nil(t, importer.MapOBNTechnique("PRM"))
	require.Nil(t, importer.MapOBNTechnique(""))
}

func TestMapOBNSystem(t *testing.T) {
	v := importer.MapOBNSystem("gpr")
	require.NotNil(t, v)
	require.Equal(t, "GPR300", *v)

	v = importer.MapOBNSystem("HomebrewNode")
	require.NotNil(t, v)
	require.Equal(t, "OTHER", *v)

	require.Nil(t, importer.MapOBNSystem(""))
}
