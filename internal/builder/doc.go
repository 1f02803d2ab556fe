/*
Package builder assembles the components of one job into a *component.Pipeline.

Construction is a two-phase process:

 1. Resolution: the configuration is validated for its mode and every
    component name it references (augmenter, network, engine, callbacks,
    inputter, modeler, runner) is looked up in the registry. Nothing is
    constructed until every name resolves, so an unknown name never leaves a
    half-built pipeline behind.

 2. Construction: factories are invoked in dependency order, augmenter ->
    network -> callbacks -> inputter -> modeler -> runner, each receiving the
    components it declared. Dependencies only point backwards; no component
    sees the builder or the registry.

The builder is single-threaded and performs no I/O of its own; dataset
acquisition happens in the app before Build is called.
*/
package builder
