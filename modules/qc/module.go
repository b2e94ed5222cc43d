// Package qc wires the QC bounded context: feed import, defect-rate
// aggregation and spreadsheet export over the production lot store.
package qc

import (
	"github.com/sirupsen/logrus"

	"github.com/hikari-opt/lens-qc/modules/qc/infrastructure/persistence"
	"github.com/hikari-opt/lens-qc/modules/qc/services"
	"github.com/hikari-opt/lens-qc/pkg/configuration"
	"github.com/hikari-opt/lens-qc/pkg/eventbus"
)

// Module bundles the context's services over pgx-backed repositories.
// The database pool travels in the context via pkg/composables, so the
// module itself holds no connection.
type Module struct {
	Imports      *services.ImportService
	Aggregations *services.AggregationService
	Exports      *services.ExportService
	State        *services.ImportStateService
	Bus          eventbus.EventBus
}

func NewModule(conf *configuration.Configuration, logger *logrus.Logger) *Module {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	bus := eventbus.NewEventPublisher(logger)

	lots := persistence.NewLotRepository()
	ngDetails := persistence.NewNGDetailRepository()
	filmCuts := persistence.NewFilmCutRepository()
	filmProcess := persistence.NewFilmProcessRepository()
	spinCoats := persistence.NewSpinCoatRepository()
	hardCoats := persistence.NewHardCoatRepository()
	instructions := persistence.NewInstructionRepository()
	products := persistence.NewProductRepository()
	monomers := persistence.NewMonomerRepository()
	workers := persistence.NewWorkerRepository()
	machines := persistence.NewMachineRepository()
	refCodes := persistence.NewRefCodeRepository()

	state := services.NewImportStateService(persistence.NewImportStateRepository())

	imports := services.NewImportService(services.ImportServiceOptions{
		Lots:            lots,
		FilmCuts:        filmCuts,
		FilmProcess:     filmProcess,
		SpinCoats:       spinCoats,
		HardCoats:       hardCoats,
		Instructions:    instructions,
		Products:        products,
		Workers:         workers,
		Machines:        machines,
		RefCodes:        refCodes,
		State:           state,
		Publisher:       bus,
		Logger:          logger,
		DefaultEncoding: conf.Import.DefaultEncoding,
		MaxRowErrors:    conf.Import.MaxRowErrors,
	})

	aggregations := services.NewAggregationService(services.AggregationServiceOptions{
		Lots:         lots,
		NGDetails:    ngDetails,
		Instructions: instructions,
		Products:     products,
		Monomers:     monomers,
		FilmCuts:     filmCuts,
		FilmProcess:  filmProcess,
		SpinCoats:    spinCoats,
		HardCoats:    hardCoats,
		State:        state,
		Logger:       logger,
	})

	return &Module{
		Imports:      imports,
		Aggregations: aggregations,
		Exports:      services.NewExportService(aggregations),
		State:        state,
		Bus:          bus,
	}
}
